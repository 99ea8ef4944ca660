package services

import (
	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/metrics"
)

// VisibilityController decides which task is displayed in full and keeps the
// minimized tray.
type VisibilityController struct {
	store   *TaskSessionStore
	surface ports.TaskSurface
	logger  *logger.Logger
}

func NewVisibilityController(store *TaskSessionStore, surface ports.TaskSurface, log *logger.Logger) *VisibilityController {
	return &VisibilityController{
		store:   store,
		surface: surface,
		logger:  log,
	}
}

// Show makes task the visible one. A different task already occupying the
// slot is moved to the tray rather than dropped.
func (c *VisibilityController) Show(task *domain.TaskRecord) error {
	if task == nil {
		return ErrTaskInvalidInput
	}

	return c.store.Update(func(st *SessionState) error {
		if st.visible == task {
			return nil
		}
		if prev := st.visible; prev != nil {
			if _, err := c.minimizeLocked(st); err != nil {
				return err
			}
			c.logger.Infow("task_backgrounded", "task_id", prev.ID, "by", task.ID)
		}
		if i := st.indexOf(task.ID); i >= 0 {
			st.removeMinimized(i)
			c.surface.RenderTray(st.Tray())
		}
		st.tasks[task.ID] = task
		st.visible = task
		c.surface.Show(domain.ViewOf(task))
		c.logger.Infow("task_shown", "task_id", task.ID, "title", task.Title)
		return nil
	})
}

// Close discards the visible task entirely.
func (c *VisibilityController) Close() error {
	return c.store.Update(func(st *SessionState) error {
		task := st.visible
		if task == nil {
			return ErrNoVisibleTask
		}
		st.visible = nil
		delete(st.tasks, task.ID)
		c.surface.Hide()
		c.logger.Infow("task_closed", "task_id", task.ID, "stage", task.Stage)
		return nil
	})
}

// Minimize moves the visible task to the tray. It is a no-op when nothing is
// visible.
func (c *VisibilityController) Minimize() error {
	return c.store.Update(func(st *SessionState) error {
		if st.visible == nil {
			return nil
		}
		task, err := c.minimizeLocked(st)
		if err != nil {
			c.logger.Warnw("task_minimize_rejected", "task_id", st.visible.ID, "error", err)
			return err
		}
		c.logger.Infow("task_minimized", "task_id", task.ID, "tray_size", len(st.minimized))
		return nil
	})
}

func (c *VisibilityController) minimizeLocked(st *SessionState) (*domain.TaskRecord, error) {
	task := st.visible
	evicted, err := st.pushMinimized(task)
	if err != nil {
		return nil, err
	}
	if evicted != nil {
		c.logger.Infow("task_evicted_from_tray", "task_id", evicted.ID, "stage", evicted.Stage)
	}
	st.visible = nil
	c.surface.Hide()
	c.surface.RenderTray(st.Tray())
	metrics.SetTasksMinimized(len(st.minimized))
	return task, nil
}

// Restore resolves a tray position to a task identity and restores it.
func (c *VisibilityController) Restore(index int) (*domain.TaskRecord, error) {
	var id string
	err := c.store.Update(func(st *SessionState) error {
		if index < 0 || index >= len(st.minimized) {
			return ErrTrayIndexOutOfRange
		}
		id = st.minimized[index].ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.RestoreByID(id)
}

// RestoreByID takes a task out of the tray and redraws it in full from its
// transcript and progress.
func (c *VisibilityController) RestoreByID(id string) (*domain.TaskRecord, error) {
	var restored *domain.TaskRecord
	err := c.store.Update(func(st *SessionState) error {
		i := st.indexOf(id)
		if i < 0 {
			return ErrTaskNotFound
		}
		if st.visible != nil {
			return ErrVisibleSlotOccupied
		}
		task := st.removeMinimized(i)
		st.visible = task
		c.surface.Show(domain.ViewOf(task))
		c.surface.RenderTray(st.Tray())
		metrics.SetTasksMinimized(len(st.minimized))
		restored = task.Clone()
		c.logger.Infow("task_restored", "task_id", task.ID, "stage", task.Stage, "progress", task.Progress)
		return nil
	})
	return restored, err
}

// Tray returns the current minimized entries.
func (c *VisibilityController) Tray() []domain.TrayEntry {
	var entries []domain.TrayEntry
	_ = c.store.Update(func(st *SessionState) error {
		entries = st.Tray()
		return nil
	})
	return entries
}
