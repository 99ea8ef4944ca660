package db

import (
	"context"
	"sync"
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
)

// TaskHistoryRepoStub keeps history in memory when no database is configured.
type TaskHistoryRepoStub struct {
	logger  *logger.Logger
	mu      sync.Mutex
	entries []domain.TaskHistory
	nextID  uint
}

func NewTaskHistoryRepoStub(log *logger.Logger) ports.TaskHistoryRepository {
	return &TaskHistoryRepoStub{logger: log}
}

func (r *TaskHistoryRepoStub) Create(ctx context.Context, entry *domain.TaskHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	r.entries = append(r.entries, *entry)

	r.logger.Infow("history_stub_create_ok",
		"task_id", entry.TaskID,
		"action", entry.Action,
		"package_id", entry.PackageID,
		"outcome", entry.Outcome,
		"duration_ms", entry.DurationMs,
	)
	return nil
}

func (r *TaskHistoryRepoStub) GetAll(ctx context.Context, limit int) ([]domain.TaskHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.TaskHistory, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *TaskHistoryRepoStub) GetByPackage(ctx context.Context, packageID string) ([]domain.TaskHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.TaskHistory
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].PackageID == packageID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *TaskHistoryRepoStub) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}
