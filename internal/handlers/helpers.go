package handlers

import (
	"github.com/gofiber/fiber/v2"

	"safeflow/internal/validation"
)

var errBadBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// parseBody decodes the JSON body into dst.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errBadBody
	}
	return nil
}

func validationFailed(c *fiber.Ctx, v *validation.Validator) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"code":   "VALIDATION_FAILED",
		"fields": v.Errors,
	})
}
