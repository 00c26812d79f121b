package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/logger"
)

// RequestContext copies the id set by fiber's requestid middleware into
// the request's context.Context so slog records carry it.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(logger.WithRequestID(c.UserContext(), rid))
		}
		return c.Next()
	}
}

type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Metrics records one observation per request, labelled by the matched
// route pattern rather than the raw path.
func Metrics(rec HTTPRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// The error handler has not run yet, so derive the status it will write.
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = apperrors.HTTPStatus(err)
			}
		}
		route := ""
		if r := c.Route(); r != nil {
			route = r.Path
		}
		rec.RecordHTTPRequest(c.Method(), route, status, time.Since(start))
		return err
	}
}
