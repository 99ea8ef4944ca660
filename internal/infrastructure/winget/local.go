package winget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
)

// Runner executes a program. A non-zero exit is reported through exitCode,
// not err.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)

func execRunner(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), 0, nil
	}
	if ctx.Err() != nil {
		return stdout.String(), stderr.String(), -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	}
	return stdout.String(), stderr.String(), -1, err
}

type LocalConfig struct {
	WingetPath   string
	DownloadsDir string
	Timeout      time.Duration
	Runner       Runner
	Logger       *logger.Logger
}

// LocalBackend drives the winget binary on this machine.
type LocalBackend struct {
	path         string
	downloadsDir string
	timeout      time.Duration
	run          Runner
	logger       *logger.Logger
}

func NewLocalBackend(cfg LocalConfig) *LocalBackend {
	if cfg.WingetPath == "" {
		cfg.WingetPath = "winget"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if cfg.Runner == nil {
		cfg.Runner = execRunner
	}
	return &LocalBackend{
		path:         cfg.WingetPath,
		downloadsDir: cfg.DownloadsDir,
		timeout:      cfg.Timeout,
		run:          cfg.Runner,
		logger:       cfg.Logger,
	}
}

func (b *LocalBackend) Do(ctx context.Context, action domain.Action, packageID string) (*domain.ActionResult, error) {
	if err := ValidatePackageID(packageID); err != nil {
		return nil, err
	}

	dir := b.downloadsDir
	if action == domain.ActionDownload {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create downloads dir: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, code, err := b.run(ctx, b.path, ActionArgs(action, packageID, dir)...)
	if err != nil {
		b.logger.Errorw("winget_exec_failed", "action", action, "package_id", packageID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res := result(code, stdout, stderr)
	b.logger.Infow("winget_exec_done",
		"action", action,
		"package_id", packageID,
		"exit_code", code,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (b *LocalBackend) List(ctx context.Context, view domain.View) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	stdout, stderr, code, err := b.run(ctx, b.path, ListArgs(view)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// winget upgrade exits non-zero when nothing is upgradable
	if code != 0 && view != domain.ViewUpdates {
		return nil, fmt.Errorf("winget %s: %s", ListArgs(view)[0], result(code, stdout, stderr).Message)
	}
	return OutputLines(stdout), nil
}
