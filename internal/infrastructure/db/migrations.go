package db

import (
	"github.com/easywinget/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.TaskHistory{}); err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// History listing is always newest first per package
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_task_histories_package_created
		ON task_histories (package_id, created_at DESC)
		WHERE deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	return nil
}
