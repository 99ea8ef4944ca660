package handlers

import (
	"github.com/easywinget/backend/internal/core/services"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type ConfirmationHandler struct {
	gate   *services.ConfirmGate
	logger *logger.Logger
}

func NewConfirmationHandler(gate *services.ConfirmGate, logger *logger.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{gate: gate, logger: logger}
}

func (h *ConfirmationHandler) GetPending(c *fiber.Ctx) error {
	p, ok := h.gate.Pending()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(p)
}

func (h *ConfirmationHandler) Answer(c *fiber.Ctx) error {
	var req dto.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	id := c.Params("id")
	if err := h.gate.Answer(id, req.OK); err != nil {
		h.logger.Warnw("confirmation_answer_failed", "id", id, "error", err)
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
