package serverutils

import (
	"errors"

	"legal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware translates service sentinel errors into HTTP
// status codes so controllers can simply return them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		code := statusForError(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrInsufficientCredits):
		return fiber.StatusPaymentRequired
	case errors.Is(err, service.ErrAmountBelowMinimum):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrAccountBlocked):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrEmailAlreadyUsed):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrDocumentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrProviderUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
