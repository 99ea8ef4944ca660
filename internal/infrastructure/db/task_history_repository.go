package db

import (
	"context"
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskHistoryRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskHistoryRepository(db *gorm.DB, log *logger.Logger) ports.TaskHistoryRepository {
	return &taskHistoryRepository{
		db:  db,
		log: log,
	}
}

func (r *taskHistoryRepository) Create(ctx context.Context, entry *domain.TaskHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Errorw("history_repo_create_failed", "task_id", entry.TaskID, "outcome", entry.Outcome, "error", err)
		return err
	}
	r.log.Infow("history_repo_create_ok", "id", entry.ID, "task_id", entry.TaskID, "outcome", entry.Outcome)
	return nil
}

func (r *taskHistoryRepository) GetAll(ctx context.Context, limit int) ([]domain.TaskHistory, error) {
	var entries []domain.TaskHistory
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		r.log.Errorw("history_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Debugw("history_repo_list_ok", "count", len(entries))
	return entries, nil
}

func (r *taskHistoryRepository) GetByPackage(ctx context.Context, packageID string) ([]domain.TaskHistory, error) {
	var entries []domain.TaskHistory
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("created_at desc").
		Limit(50).
		Find(&entries).Error
	if err != nil {
		r.log.Errorw("history_repo_get_by_package_failed", "package_id", packageID, "error", err)
		return nil, err
	}
	r.log.Debugw("history_repo_get_by_package_ok", "package_id", packageID, "count", len(entries))
	return entries, nil
}

// CleanupOld removes entries older than the specified duration
func (r *taskHistoryRepository) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	if err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.TaskHistory{}).Error; err != nil {
		r.log.Errorw("history_repo_cleanup_failed", "error", err)
		return err
	}
	r.log.Infow("history_repo_cleanup_ok", "cutoff", cutoff)
	return nil
}
