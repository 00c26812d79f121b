package handlers

import (
	"github.com/gofiber/fiber/v2"

	"safeflow/internal/health"
)

type HealthHandler struct {
	checker *health.Checker
	version string
}

func NewHealthHandler(checker *health.Checker, version string) *HealthHandler {
	return &HealthHandler{checker: checker, version: version}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	results, healthy := h.checker.Check(c.UserContext())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unavailable",
			"version":  h.version,
			"services": results,
		})
	}
	return c.JSON(fiber.Map{
		"status":   health.StatusOK,
		"version":  h.version,
		"services": results,
	})
}
