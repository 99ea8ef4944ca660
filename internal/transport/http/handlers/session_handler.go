package handlers

import (
	"strconv"

	"github.com/easywinget/backend/internal/core/services"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type SessionHandler struct {
	store      *services.TaskSessionStore
	visibility *services.VisibilityController
	logger     *logger.Logger
}

func NewSessionHandler(store *services.TaskSessionStore, visibility *services.VisibilityController, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{store: store, visibility: visibility, logger: logger}
}

func (h *SessionHandler) session(c *fiber.Ctx) error {
	snap := h.store.Snapshot()
	return c.JSON(dto.SessionResponse{
		Visible: dto.TaskToResponse(snap.Visible),
		Tray:    snap.Tray,
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	return h.session(c)
}

func (h *SessionHandler) Minimize(c *fiber.Ctx) error {
	if err := h.visibility.Minimize(); err != nil {
		return writeError(c, err)
	}
	return h.session(c)
}

func (h *SessionHandler) Close(c *fiber.Ctx) error {
	if err := h.visibility.Close(); err != nil {
		return writeError(c, err)
	}
	return h.session(c)
}

func (h *SessionHandler) Restore(c *fiber.Ctx) error {
	if _, err := h.visibility.RestoreByID(c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return h.session(c)
}

func (h *SessionHandler) RestoreIndex(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid index"})
	}
	if _, err := h.visibility.Restore(index); err != nil {
		return writeError(c, err)
	}
	return h.session(c)
}
