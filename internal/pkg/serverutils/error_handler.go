package serverutils

import (
	"errors"

	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, log, err)
	}
}

// WriteError writes err as a JSON error response. Internal causes are logged, never echoed.
func WriteError(ctx *fiber.Ctx, log logger.ILogger, err error) error {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Status >= fiber.StatusInternalServerError && log != nil {
			details := map[string]interface{}{
				"path":  ctx.Path(),
				"code":  appErr.Code,
				"error": appErr.Error(),
			}
			log.Error("HTTP", appErr.Message, details)
		}
		return ctx.Status(appErr.Status).JSON(ErrorResponseWithCode(appErr.Status, appErr.Code, appErr.Message))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	if log != nil {
		log.Error("HTTP", "Unhandled error", map[string]interface{}{
			"path":  ctx.Path(),
			"error": err.Error(),
		})
	}
	return ctx.Status(fiber.StatusInternalServerError).
		JSON(ErrorResponseWithCode(fiber.StatusInternalServerError, apperror.CodeInternal, "internal server error"))
}
