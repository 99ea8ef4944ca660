package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/core/services"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

// Launcher is the part of services.Launcher the task routes drive.
type Launcher interface {
	Launch(ctx context.Context, req services.LaunchRequest) (*services.TaskHandle, error)
	Cancel(taskID string) error
}

type TaskHandler struct {
	launcher Launcher
	tasks    *services.TaskService
	notifier ports.Notifier
	logger   *logger.Logger
}

func NewTaskHandler(launcher Launcher, tasks *services.TaskService, notifier ports.Notifier, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{launcher: launcher, tasks: tasks, notifier: notifier, logger: logger}
}

// launchFailure is the toast text for a launch that never produced a task.
func launchFailure(action domain.Action, name string, err error) string {
	reason := "internal error"
	switch {
	case errors.Is(err, services.ErrConfirmationPending):
		reason = "another confirmation is still open"
	case errors.Is(err, services.ErrTrayFull):
		reason = "too many minimized tasks are still running"
	case errors.Is(err, services.ErrLaunchStopped):
		reason = "the server is shutting down"
	case errors.Is(err, services.ErrTaskInvalidInput):
		reason = "invalid request"
	}
	return fmt.Sprintf("Could not %s %s: %s", action, name, reason)
}

// Launch accepts the request and runs confirmation and the task in the
// background; progress is reported on the session socket.
func (h *TaskHandler) Launch(c *fiber.Ctx) error {
	action, err := domain.ParseAction(c.Params("action"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	var req dto.LaunchTaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_launch_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	h.logger.Infow("task_launch_request", "action", action, "package_id", req.ID, "name", req.Name)
	launch := services.LaunchRequest{Action: action, PackageID: req.ID, Name: req.Name}
	go func() {
		if _, err := h.launcher.Launch(context.Background(), launch); err != nil {
			if errors.Is(err, services.ErrLaunchDeclined) {
				return
			}
			h.logger.Warnw("task_launch_failed", "action", action, "package_id", req.ID, "error", err)
			name := req.Name
			if name == "" {
				name = req.ID
			}
			h.notifier.Toast(domain.SeverityError, launchFailure(action, name, err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(dto.LaunchTaskResponse{
		Status:    "pending_confirmation",
		Action:    action,
		PackageID: req.ID,
	})
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.tasks.GetTask(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) CancelTask(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.launcher.Cancel(id); err != nil {
		return writeError(c, err)
	}
	h.logger.Infow("task_cancel_requested", "task_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}
