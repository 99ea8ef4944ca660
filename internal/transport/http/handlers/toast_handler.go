package handlers

import (
	"github.com/easywinget/backend/internal/core/services"
	"github.com/gofiber/fiber/v2"
)

type ToastHandler struct {
	toasts *services.ToastService
}

func NewToastHandler(toasts *services.ToastService) *ToastHandler {
	return &ToastHandler{toasts: toasts}
}

func (h *ToastHandler) GetToasts(c *fiber.Ctx) error {
	return c.JSON(h.toasts.Active())
}
