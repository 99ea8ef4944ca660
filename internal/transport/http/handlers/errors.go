package handlers

import (
	"errors"

	"github.com/easywinget/backend/internal/core/services"
	"github.com/easywinget/backend/internal/infrastructure/winget"
	"github.com/easywinget/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrConfirmationNotFound),
		errors.Is(err, services.ErrTrayIndexOutOfRange):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrTaskInvalidInput),
		errors.Is(err, winget.ErrInvalidPackageID):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNoVisibleTask),
		errors.Is(err, services.ErrVisibleSlotOccupied),
		errors.Is(err, services.ErrTrayFull),
		errors.Is(err, services.ErrConfirmationPending):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrLaunchStopped):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, winget.ErrUnavailable),
		errors.Is(err, winget.ErrBadResponse):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Error: err.Error()})
}
