package handlers

import (
	"github.com/easywinget/backend/internal/core/services"
	"github.com/easywinget/backend/internal/domain"
	"github.com/easywinget/backend/internal/infrastructure/logger"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type ViewHandler struct {
	views  *services.ViewService
	logger *logger.Logger
}

func NewViewHandler(views *services.ViewService, logger *logger.Logger) *ViewHandler {
	return &ViewHandler{views: views, logger: logger}
}

func (h *ViewHandler) GetView(c *fiber.Ctx) error {
	view, err := domain.ParseView(c.Params("view"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	lines, err := h.views.Load(c.UserContext(), view, c.QueryBool("refresh"))
	if err != nil {
		h.logger.Errorw("view_load_failed", "view", view, "error", err)
		return writeError(c, err)
	}
	if lines == nil {
		lines = []string{}
	}
	return c.JSON(dto.ViewResponse{View: view, Lines: lines})
}
