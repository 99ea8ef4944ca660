package domain

import (
	"time"

	"gorm.io/gorm"
)

// ==================== ENTITIES ====================

// TaskHistory is the audit row written when a task reaches a terminal outcome.
// It is not used to rebuild session state.
type TaskHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TaskID     string `gorm:"size:36;index;not null" json:"task_id"`
	Action     Action `gorm:"size:20;index;not null" json:"action"`
	PackageID  string `gorm:"size:255;index;not null" json:"package_id"`
	Title      string `gorm:"size:255" json:"title"`
	Outcome    string `gorm:"size:20;not null" json:"outcome"`
	Message    string `gorm:"type:text" json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (TaskHistory) TableName() string {
	return "task_histories"
}
