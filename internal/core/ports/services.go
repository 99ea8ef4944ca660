package ports

import (
	"context"

	"github.com/easywinget/backend/internal/domain"
)

// TaskSurface is the full-detail task display. Implementations must not block.
type TaskSurface interface {
	Show(view domain.TaskView)
	AppendLine(taskID string, entry domain.LogEntry)
	SetProgress(taskID string, progress int, label string)
	Hide()
	RenderTray(entries []domain.TrayEntry)
	ViewInvalidated(view domain.View)
}

// Notifier shows fire-and-forget toasts.
type Notifier interface {
	Toast(kind domain.Severity, message string)
}

// Prompt is a yes/no question shown to the user.
type Prompt struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
}

// Confirmer resolves a prompt to the user's consent.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// PromptPublisher delivers prompts and their resolution to the browser.
type PromptPublisher interface {
	PublishPrompt(prompt Prompt)
	PublishPromptResolved(id string, ok bool)
}

// PackageManager executes winget operations.
type PackageManager interface {
	Do(ctx context.Context, action domain.Action, packageID string) (*domain.ActionResult, error)
	List(ctx context.Context, view domain.View) ([]string, error)
}

// ViewRefresher invalidates a listing after a task changed it.
type ViewRefresher interface {
	Refresh(ctx context.Context, view domain.View)
}

// ToastPublisher delivers toasts and their dismissal to the browser.
type ToastPublisher interface {
	PublishToast(toast domain.Toast)
	PublishToastDismissed(id string)
}
