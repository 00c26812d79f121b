package errors

import (
	stderrors "errors"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

// Handler turns errors returned by fiber handlers into JSON responses.
// Domain errors keep their message; everything else is logged, reported to
// Sentry and answered with a generic message.
type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Fiber is meant to be installed as fiber.Config.ErrorHandler.
func (h *Handler) Fiber(c *fiber.Ctx, err error) error {
	if de, ok := As(err); ok {
		status := HTTPStatus(de)
		if status >= fiber.StatusInternalServerError {
			h.report(c, err)
			return c.Status(status).JSON(fiber.Map{"error": "internal server error", "code": de.Code})
		}
		return c.Status(status).JSON(fiber.Map{"error": de.Message, "code": de.Code})
	}

	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	h.report(c, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func (h *Handler) report(c *fiber.Ctx, err error) {
	h.logger.ErrorContext(c.UserContext(), "request failed",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Any("error", err),
	)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("path", c.Path())
		scope.SetTag("method", c.Method())
		if rid, ok := c.Locals("requestid").(string); ok {
			scope.SetTag("request_id", rid)
		}
		sentry.CaptureException(err)
	})
}
