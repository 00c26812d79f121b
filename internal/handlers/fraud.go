package handlers

import (
	"github.com/gofiber/fiber/v2"

	"safeflow/internal/services/fraud"
	"safeflow/internal/utils"
)

type FraudHandler struct {
	fraudService fraud.Service
}

func NewFraudHandler(fraudService fraud.Service) *FraudHandler {
	return &FraudHandler{fraudService: fraudService}
}

// GetFraudLogs lists the caller's alerts, newest first.
func (h *FraudHandler) GetFraudLogs(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	page := utils.GetPagination(c)
	logs, total, err := h.fraudService.ListLogs(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return err
	}

	page.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(logs, page))
}
