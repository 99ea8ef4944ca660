package services

import (
	"time"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
)

// TaskService is the task log sink: the only writer of task transcripts,
// stages and progress.
type TaskService struct {
	store   *TaskSessionStore
	surface ports.TaskSurface
	logger  *logger.Logger
}

func NewTaskService(store *TaskSessionStore, surface ports.TaskSurface, log *logger.Logger) *TaskService {
	return &TaskService{
		store:   store,
		surface: surface,
		logger:  log,
	}
}

// AppendLog records one transcript line on task and re-derives its stage.
// The visible surface is touched only when task is the visible one. A nil
// task is ignored.
func (s *TaskService) AppendLog(task *domain.TaskRecord, text string, severity domain.Severity) {
	if task == nil {
		return
	}

	_ = s.store.Update(func(st *SessionState) error {
		entry := domain.LogEntry{Text: text, Severity: severity, At: time.Now()}
		task.Transcript = append(task.Transcript, entry)

		prevStage := task.Stage
		task.Stage, task.Progress = Classify(text, severity, task.Stage, task.Progress)
		task.UpdatedAt = entry.At

		if task.Stage != prevStage {
			s.logger.Debugw("task_stage_changed", "task_id", task.ID, "from", prevStage, "to", task.Stage, "progress", task.Progress)
		}

		if st.IsVisible(task) {
			s.surface.AppendLine(task.ID, entry)
			s.surface.SetProgress(task.ID, task.Progress, task.Stage.Label())
		}
		return nil
	})
}

// GetTask returns a copy of a live task.
func (s *TaskService) GetTask(id string) (*domain.TaskRecord, error) {
	return s.store.Get(id)
}
