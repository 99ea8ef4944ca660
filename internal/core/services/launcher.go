package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/metrics"
)

type actionScript struct {
	confirmTitle   string
	confirmMessage string
	confirmIcon    string
	title          string
	announce       string
	success        string
	failure        string
	toastStart     string
	toastSuccess   string
	toastFailure   string
	toastError     string
	refresh        domain.View
}

var actionScripts = map[domain.Action]actionScript{
	domain.ActionInstall: {
		confirmTitle:   "Install Application",
		confirmMessage: "Install %q?\n\nThis will download and install the application.",
		confirmIcon:    "📥",
		title:          "Installing %s",
		announce:       "Running: winget install %s...",
		success:        "✓ Installation completed successfully!",
		failure:        "✗ Installation failed",
		toastStart:     "Installing %s...",
		toastSuccess:   "%s installed successfully!",
		toastFailure:   "Failed to install %s",
		toastError:     "Error installing %s",
	},
	domain.ActionDownload: {
		confirmTitle:   "Download Installer",
		confirmMessage: "Download %q?\n\nThe installer will be saved to the Downloads folder.",
		confirmIcon:    "💾",
		title:          "Downloading %s",
		announce:       "Downloading installer...",
		success:        "✓ Download completed!",
		failure:        "✗ Download failed",
		toastStart:     "Downloading %s...",
		toastSuccess:   "%s downloaded successfully!",
		toastFailure:   "Failed to download %s",
		toastError:     "Error downloading %s",
	},
	domain.ActionUninstall: {
		confirmTitle:   "Uninstall Application",
		confirmMessage: "Uninstall %q?\n\nThis will permanently remove the application.",
		confirmIcon:    "🗑️",
		title:          "Uninstalling %s",
		announce:       "Running: winget uninstall %s...",
		success:        "✓ Uninstallation completed!",
		failure:        "✗ Uninstallation failed",
		toastStart:     "Uninstalling %s...",
		toastSuccess:   "%s uninstalled successfully!",
		toastFailure:   "Failed to uninstall %s",
		toastError:     "Error uninstalling %s",
		refresh:        domain.ViewInstalled,
	},
	domain.ActionUpdate: {
		confirmTitle:   "Update Application",
		confirmMessage: "Update %q?\n\nThis will upgrade to the latest version.",
		confirmIcon:    "⬆️",
		title:          "Updating %s",
		announce:       "Running: winget upgrade %s...",
		success:        "✓ Update completed!",
		failure:        "✗ Update failed",
		toastStart:     "Updating %s...",
		toastSuccess:   "%s updated successfully!",
		toastFailure:   "Failed to update %s",
		toastError:     "Error updating %s",
		refresh:        domain.ViewUpdates,
	},
}

const (
	lineStarting     = "Starting task..."
	lineNetworkError = "✗ Network error"
	lineCancelled    = "✗ Task cancelled"
	lineUnknownError = "Unknown error"
	lineInternal     = "✗ Internal error"
)

// LaunchRequest names the action and the package it targets.
type LaunchRequest struct {
	Action    domain.Action
	PackageID string
	Name      string
}

// TaskHandle is the continuation of one launched task.
type TaskHandle struct {
	TaskID string
	done   chan struct{}
	cancel context.CancelFunc
}

// Done is closed once the terminal transcript line has been appended.
func (h *TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task finishes or ctx ends.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel abandons the backend call of this task.
func (h *TaskHandle) Cancel() {
	h.cancel()
}

type LauncherConfig struct {
	Tasks          *TaskService
	Store          *TaskSessionStore
	Visibility     *VisibilityController
	Backend        ports.PackageManager
	Confirmer      ports.Confirmer
	Notifier       ports.Notifier
	Refresher      ports.ViewRefresher
	History        ports.TaskHistoryRepository
	Logger         *logger.Logger
	DownloadsLabel string
	BackendTimeout time.Duration
}

// Launcher turns confirmed user actions into tracked background tasks.
type Launcher struct {
	tasks          *TaskService
	store          *TaskSessionStore
	visibility     *VisibilityController
	backend        ports.PackageManager
	confirmer      ports.Confirmer
	notifier       ports.Notifier
	refresher      ports.ViewRefresher
	history        ports.TaskHistoryRepository
	logger         *logger.Logger
	downloadsLabel string
	backendTimeout time.Duration

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	handles map[string]*TaskHandle
}

func NewLauncher(cfg LauncherConfig) *Launcher {
	ctx, stop := context.WithCancel(context.Background())
	label := cfg.DownloadsLabel
	if label == "" {
		label = "Downloads"
	}
	return &Launcher{
		tasks:          cfg.Tasks,
		store:          cfg.Store,
		visibility:     cfg.Visibility,
		backend:        cfg.Backend,
		confirmer:      cfg.Confirmer,
		notifier:       cfg.Notifier,
		refresher:      cfg.Refresher,
		history:        cfg.History,
		logger:         cfg.Logger,
		downloadsLabel: label,
		backendTimeout: cfg.BackendTimeout,
		baseCtx:        ctx,
		stop:           stop,
		handles:        make(map[string]*TaskHandle),
	}
}

// Launch asks for confirmation, creates and shows the task, emits the
// scripted lines and starts the backend call in the background. A declined
// confirmation returns ErrLaunchDeclined and leaves no trace.
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest) (*TaskHandle, error) {
	script, ok := actionScripts[req.Action]
	if !ok || req.PackageID == "" {
		return nil, ErrTaskInvalidInput
	}
	name := req.Name
	if name == "" {
		name = req.PackageID
	}

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrLaunchStopped
	}

	confirmed, err := l.confirmer.Confirm(ctx, ports.Prompt{
		Title:   script.confirmTitle,
		Message: fmt.Sprintf(script.confirmMessage, name),
		Icon:    script.confirmIcon,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm %s %s: %w", req.Action, req.PackageID, err)
	}
	if !confirmed {
		metrics.RecordTaskDeclined(string(req.Action))
		l.logger.Infow("task_launch_declined", "action", req.Action, "package_id", req.PackageID)
		return nil, ErrLaunchDeclined
	}

	// Shutdown may have completed while the prompt was open.
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Infow("task_launch_refused_shutdown", "action", req.Action, "package_id", req.PackageID)
		return nil, ErrLaunchStopped
	}
	l.wg.Add(1)
	l.mu.Unlock()
	spawned := false
	defer func() {
		if !spawned {
			l.wg.Done()
		}
	}()

	task := l.store.Create(req.Action, fmt.Sprintf(script.title, name), req.PackageID)
	if err := l.visibility.Show(task); err != nil {
		l.store.Discard(task.ID)
		return nil, fmt.Errorf("show task: %w", err)
	}
	l.notifier.Toast(domain.SeverityInfo, fmt.Sprintf(script.toastStart, name))

	l.tasks.AppendLog(task, lineStarting, domain.SeverityInfo)
	l.tasks.AppendLog(task, "Package ID: "+req.PackageID, domain.SeverityInfo)
	announce := script.announce
	if req.Action != domain.ActionDownload {
		announce = fmt.Sprintf(announce, req.PackageID)
	}
	l.tasks.AppendLog(task, announce, domain.SeverityInfo)

	var (
		taskCtx context.Context
		cancel  context.CancelFunc
	)
	if l.backendTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(l.baseCtx, l.backendTimeout)
	} else {
		taskCtx, cancel = context.WithCancel(l.baseCtx)
	}
	handle := &TaskHandle{TaskID: task.ID, done: make(chan struct{}), cancel: cancel}

	l.mu.Lock()
	l.handles[task.ID] = handle
	l.mu.Unlock()

	metrics.RecordTaskStarted(string(req.Action))
	l.logger.Infow("task_launch_ok", "task_id", task.ID, "action", req.Action, "package_id", req.PackageID)

	spawned = true
	go l.run(taskCtx, handle, task, req, name, script)

	return handle, nil
}

func (l *Launcher) run(ctx context.Context, h *TaskHandle, task *domain.TaskRecord, req LaunchRequest, name string, script actionScript) {
	started := time.Now()
	defer l.wg.Done()
	defer close(h.done)
	defer h.cancel()
	defer func() {
		l.mu.Lock()
		delete(l.handles, h.TaskID)
		l.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorw("task_panic", "task_id", task.ID, "panic", r)
			l.tasks.AppendLog(task, lineInternal, domain.SeverityError)
			l.notifier.Toast(domain.SeverityError, fmt.Sprintf(script.toastError, name))
			l.record(task, domain.OutcomeFailed, fmt.Sprint(r), started)
			metrics.RecordTaskFailed(string(req.Action), "panic", time.Since(started))
		}
	}()

	result, err := l.backend.Do(ctx, req.Action, req.PackageID)

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		l.logger.Infow("task_cancelled", "task_id", task.ID)
		l.tasks.AppendLog(task, lineCancelled, domain.SeverityError)
		l.notifier.Toast(domain.SeverityError, fmt.Sprintf(script.toastError, name))
		l.record(task, domain.OutcomeCancelled, err.Error(), started)
		metrics.RecordTaskFailed(string(req.Action), "cancelled", time.Since(started))

	case err != nil:
		l.logger.Warnw("backend_request_failed", "task_id", task.ID, "action", req.Action, "package_id", req.PackageID, "error", err)
		l.tasks.AppendLog(task, lineNetworkError, domain.SeverityError)
		l.notifier.Toast(domain.SeverityError, fmt.Sprintf(script.toastError, name))
		l.record(task, domain.OutcomeFailed, err.Error(), started)
		metrics.RecordTaskFailed(string(req.Action), "transport", time.Since(started))

	case result == nil || !result.Success:
		msg := lineUnknownError
		if result != nil && result.Message != "" {
			msg = result.Message
		}
		l.logger.Warnw("backend_reported_failure", "task_id", task.ID, "action", req.Action, "package_id", req.PackageID, "message", msg)
		l.tasks.AppendLog(task, script.failure, domain.SeverityError)
		l.tasks.AppendLog(task, msg, domain.SeverityError)
		l.notifier.Toast(domain.SeverityError, fmt.Sprintf(script.toastFailure, name))
		l.record(task, domain.OutcomeFailed, msg, started)
		metrics.RecordTaskFailed(string(req.Action), "backend", time.Since(started))

	default:
		l.tasks.AppendLog(task, script.success, domain.SeveritySuccess)
		if req.Action == domain.ActionDownload {
			saved := path.Join(l.downloadsLabel, req.PackageID+".exe")
			l.tasks.AppendLog(task, "Saved to: "+saved, domain.SeverityInfo)
		}
		l.notifier.Toast(domain.SeveritySuccess, fmt.Sprintf(script.toastSuccess, name))
		if script.refresh != "" && l.refresher != nil {
			l.refresher.Refresh(context.Background(), script.refresh)
		}
		l.record(task, domain.OutcomeCompleted, result.Message, started)
		metrics.RecordTaskCompleted(string(req.Action), time.Since(started))
		l.logger.Infow("task_completed", "task_id", task.ID, "action", req.Action, "duration_ms", time.Since(started).Milliseconds())
	}
}

func (l *Launcher) record(task *domain.TaskRecord, outcome, message string, started time.Time) {
	if l.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := &domain.TaskHistory{
		TaskID:     task.ID,
		Action:     task.Action,
		PackageID:  task.SubjectID,
		Title:      task.Title,
		Outcome:    outcome,
		Message:    message,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err := l.history.Create(ctx, entry); err != nil {
		l.logger.Warnw("task_history_write_failed", "task_id", task.ID, "error", err)
	}
}

// Cancel abandons the backend call of a running task.
func (l *Launcher) Cancel(taskID string) error {
	l.mu.Lock()
	h, ok := l.handles[taskID]
	l.mu.Unlock()
	if !ok {
		return ErrTaskNotFound
	}
	h.Cancel()
	return nil
}

// Shutdown refuses new launches and waits for running tasks. When ctx ends
// first, outstanding backend calls are cancelled.
func (l *Launcher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.stop()
		return nil
	case <-ctx.Done():
		l.stop()
		<-done
		return ctx.Err()
	}
}
