package dto

import (
	"time"

	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/winget"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type LaunchTaskRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *LaunchTaskRequest) Validate() []string {
	var errors []string
	if r.ID == "" {
		errors = append(errors, "id is required")
	} else if err := winget.ValidatePackageID(r.ID); err != nil {
		errors = append(errors, err.Error())
	}
	if len(r.Name) > 256 {
		errors = append(errors, "name is too long")
	}
	return errors
}

type LaunchTaskResponse struct {
	Status    string        `json:"status"`
	Action    domain.Action `json:"action"`
	PackageID string        `json:"package_id"`
}

type TaskResponse struct {
	ID         string            `json:"id"`
	Action     domain.Action     `json:"action"`
	Title      string            `json:"title"`
	PackageID  string            `json:"package_id"`
	Transcript []domain.LogEntry `json:"transcript"`
	Stage      domain.Stage      `json:"stage"`
	Label      string            `json:"label"`
	Progress   int               `json:"progress"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func TaskToResponse(t *domain.TaskRecord) *TaskResponse {
	if t == nil {
		return nil
	}
	return &TaskResponse{
		ID:         t.ID,
		Action:     t.Action,
		Title:      t.Title,
		PackageID:  t.SubjectID,
		Transcript: t.Transcript,
		Stage:      t.Stage,
		Label:      t.Stage.Label(),
		Progress:   t.Progress,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

type SessionResponse struct {
	Visible *TaskResponse      `json:"visible"`
	Tray    []domain.TrayEntry `json:"tray"`
}

type ConfirmRequest struct {
	OK bool `json:"ok"`
}

type ViewResponse struct {
	View  domain.View `json:"view"`
	Lines []string    `json:"lines"`
}
