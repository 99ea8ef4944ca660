package ports

import (
	"context"
	"time"

	"github.com/easywinget/backend/internal/domain"
)

type TaskHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TaskHistory) error
	GetAll(ctx context.Context, limit int) ([]domain.TaskHistory, error)
	GetByPackage(ctx context.Context, packageID string) ([]domain.TaskHistory, error)
	CleanupOld(ctx context.Context, olderThan time.Duration) error
}

// ViewCache stores the raw listing lines behind the installed/updates views.
type ViewCache interface {
	Get(ctx context.Context, view domain.View) ([]string, bool, error)
	Set(ctx context.Context, view domain.View, lines []string) error
	Invalidate(ctx context.Context, view domain.View) error
}
