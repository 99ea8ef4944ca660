package handlers

import (
	"strconv"

	"github.com/easywinget/backend/internal/core/ports"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type HistoryHandler struct {
	repo ports.TaskHistoryRepository
}

func NewHistoryHandler(repo ports.TaskHistoryRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	if pkg := c.Query("package_id"); pkg != "" {
		entries, err := h.repo.GetByPackage(c.UserContext(), pkg)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(entries)
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid limit"})
		}
		limit = n
	}
	entries, err := h.repo.GetAll(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(entries)
}
