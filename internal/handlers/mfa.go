package handlers

import (
	"github.com/gofiber/fiber/v2"

	"safeflow/internal/services/mfa"
	"safeflow/internal/utils"
	"safeflow/internal/validation"
)

type MFAHandler struct {
	mfaService mfa.Service
}

func NewMFAHandler(mfaService mfa.Service) *MFAHandler {
	return &MFAHandler{mfaService: mfaService}
}

// Setup returns a fresh secret and otpauth URL for the authenticator app.
// The factor stays disabled until Enable succeeds.
func (h *MFAHandler) Setup(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	res, err := h.mfaService.Setup(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return utils.Success(c, res)
}

func (h *MFAHandler) Enable(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var input struct {
		Code string `json:"code"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	v := validation.New()
	v.Required("code", input.Code)
	if !v.Valid() {
		return validationFailed(c, v)
	}

	if err := h.mfaService.Enable(c.UserContext(), userID, input.Code); err != nil {
		return err
	}
	return utils.Message(c, "Two-factor authentication enabled")
}
