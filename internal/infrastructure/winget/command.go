package winget

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/easywinget/backend/internal/domain"
)

var (
	ErrInvalidPackageID = errors.New("winget: invalid package id")
	ErrUnavailable      = errors.New("winget: backend unavailable")
	ErrBadResponse      = errors.New("winget: malformed backend response")
)

// InstallerExts are the files a download may leave behind.
var InstallerExts = []string{".exe", ".msi", ".msix", ".appx", ".zip"}

var packageIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+\-]{0,127}$`)

func ValidatePackageID(id string) error {
	if !packageIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPackageID, id)
	}
	return nil
}

var agreements = []string{"--accept-source-agreements", "--accept-package-agreements"}

// ActionArgs builds the winget arguments for action. Downloads land in dir.
func ActionArgs(action domain.Action, id, dir string) []string {
	if action == domain.ActionDownload {
		return append([]string{"download", "--id", id, "-e", "-d", dir}, agreements...)
	}
	args := []string{action.Verb(), "--id", id, "-e", "--disable-interactivity"}
	if action == domain.ActionUninstall {
		return append(args, "--accept-source-agreements")
	}
	return append(args, agreements...)
}

func ListArgs(view domain.View) []string {
	if view == domain.ViewUpdates {
		return []string{"upgrade", "--include-unknown", "--accept-source-agreements"}
	}
	return []string{"list", "--accept-source-agreements"}
}

// OutputLines splits winget output into meaningful lines. Spinner frames and
// progress-bar redraws are dropped.
func OutputLines(out string) []string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	var lines []string
	for _, raw := range strings.Split(out, "\n") {
		// keep only the final redraw of a \r-rewritten line
		if i := strings.LastIndex(raw, "\r"); i >= 0 {
			raw = raw[i+1:]
		}
		line := strings.TrimSpace(raw)
		if line == "" || isSpinner(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isSpinner(line string) bool {
	return strings.Trim(line, `-\|/ `) == ""
}

// LastLine is the final meaningful line, used as a failure message.
func LastLine(out string) string {
	lines := OutputLines(out)
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func result(exitCode int, stdout, stderr string) *domain.ActionResult {
	msg := LastLine(stdout)
	if exitCode == 0 {
		return &domain.ActionResult{Success: true, Message: msg}
	}
	if m := LastLine(stderr); m != "" {
		msg = m
	}
	if msg == "" {
		msg = fmt.Sprintf("winget exited with code %d", exitCode)
	}
	return &domain.ActionResult{Success: false, Message: msg}
}
