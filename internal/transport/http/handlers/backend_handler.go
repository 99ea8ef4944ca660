package handlers

import (
	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

// BackendHandler exposes the configured package manager to other panels.
// Each call runs to completion before responding.
type BackendHandler struct {
	backend ports.PackageManager
	logger  *logger.Logger
}

func NewBackendHandler(backend ports.PackageManager, logger *logger.Logger) *BackendHandler {
	return &BackendHandler{backend: backend, logger: logger}
}

func (h *BackendHandler) Run(c *fiber.Ctx) error {
	action, err := domain.ParseAction(c.Params("action"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(domain.ActionResult{Success: false, Message: "id is required"})
	}

	h.logger.Infow("backend_request", "action", action, "package_id", id)
	res, err := h.backend.Do(c.UserContext(), action, id)
	if err != nil {
		h.logger.Errorw("backend_request_failed", "action", action, "package_id", id, "error", err)
		return c.Status(statusFor(err)).JSON(domain.ActionResult{Success: false, Message: err.Error()})
	}
	return c.JSON(res)
}
