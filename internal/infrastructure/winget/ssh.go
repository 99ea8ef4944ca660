package winget

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/infrastructure/remote"
)

// RemoteHost is the part of remote.SSHClient the SSH backend needs.
type RemoteHost interface {
	RunCommand(ctx context.Context, cmd string) (string, error)
	FetchNewest(ctx context.Context, remoteDir string, exts []string, localBase string) (string, int64, error)
}

// DefaultRemoteDownloadsDir is relative to the SSH user's profile, which is
// both the working directory of remote commands and the SFTP home.
const DefaultRemoteDownloadsDir = `Downloads\easywinget`

type SSHBackendConfig struct {
	Host               RemoteHost
	RemoteDownloadsDir string
	LocalDownloadsDir  string
	Logger             *logger.Logger
}

// SSHBackend runs winget on a remote Windows host over OpenSSH.
type SSHBackend struct {
	host      RemoteHost
	remoteDir string
	localDir  string
	logger    *logger.Logger

	mu       sync.Mutex
	resolved string
}

func NewSSHBackend(cfg SSHBackendConfig) *SSHBackend {
	if cfg.RemoteDownloadsDir == "" {
		cfg.RemoteDownloadsDir = DefaultRemoteDownloadsDir
	}
	return &SSHBackend{
		host:      cfg.Host,
		remoteDir: cfg.RemoteDownloadsDir,
		localDir:  cfg.LocalDownloadsDir,
		logger:    cfg.Logger,
	}
}

// commandLine quotes arguments for cmd.exe. Package ids are validated, so
// only paths need quoting.
func commandLine(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, "winget")
	for _, a := range args {
		if strings.ContainsAny(a, ` %\`) {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func (b *SSHBackend) Do(ctx context.Context, action domain.Action, packageID string) (*domain.ActionResult, error) {
	if err := ValidatePackageID(packageID); err != nil {
		return nil, err
	}

	var remoteDir string
	if action == domain.ActionDownload {
		base, err := b.downloadsDir(ctx)
		if err != nil {
			return nil, err
		}
		remoteDir = base + `\` + packageID
	}
	out, err := b.host.RunCommand(ctx, commandLine(ActionArgs(action, packageID, remoteDir)))

	var cmdErr *remote.CommandError
	switch {
	case errors.As(err, &cmdErr):
		b.logger.Warnw("remote_winget_failed", "action", action, "package_id", packageID, "exit_code", cmdErr.ExitCode)
		return result(cmdErr.ExitCode, cmdErr.Stdout, cmdErr.Stderr), nil
	case err != nil:
		b.logger.Errorw("remote_winget_unreachable", "action", action, "package_id", packageID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res := result(0, out, "")
	if action != domain.ActionDownload {
		return res, nil
	}

	if err := os.MkdirAll(b.localDir, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}
	localPath, size, err := b.host.FetchNewest(ctx, remoteDir, InstallerExts, filepath.Join(b.localDir, packageID))
	if err != nil {
		b.logger.Errorw("remote_download_fetch_failed", "package_id", packageID, "error", err)
		return &domain.ActionResult{Success: false, Message: err.Error()}, nil
	}
	b.logger.Infow("remote_download_fetched", "package_id", packageID, "path", localPath, "size", humanize.Bytes(uint64(size)))
	return res, nil
}

// downloadsDir expands %VAR% references in the configured directory once,
// through the remote shell, since SFTP paths are taken literally.
func (b *SSHBackend) downloadsDir(ctx context.Context) (string, error) {
	if !strings.Contains(b.remoteDir, "%") {
		return b.remoteDir, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved != "" {
		return b.resolved, nil
	}

	out, err := b.host.RunCommand(ctx, "echo "+b.remoteDir)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %v", ErrUnavailable, b.remoteDir, err)
	}
	dir := LastLine(out)
	if dir == "" || strings.Contains(dir, "%") {
		return "", fmt.Errorf("%w: cannot expand %s", ErrUnavailable, b.remoteDir)
	}
	b.resolved = dir
	b.logger.Infow("remote_downloads_dir_resolved", "configured", b.remoteDir, "resolved", dir)
	return dir, nil
}

func (b *SSHBackend) List(ctx context.Context, view domain.View) ([]string, error) {
	out, err := b.host.RunCommand(ctx, commandLine(ListArgs(view)))
	var cmdErr *remote.CommandError
	if errors.As(err, &cmdErr) && view == domain.ViewUpdates {
		return OutputLines(cmdErr.Stdout), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return OutputLines(out), nil
}
