package handlers

import (
	"github.com/gofiber/fiber/v2"

	"safeflow/internal/services/user"
	"safeflow/internal/utils"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	profile, err := h.userService.Profile(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return utils.Success(c, profile)
}

// CompleteProfile fills in birth date and CPF, typically after a Google
// sign-up.
func (h *UserHandler) CompleteProfile(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var input struct {
		BirthDate string `json:"birth_date"`
		CPF       string `json:"cpf"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	profile, err := h.userService.CompleteProfile(c.UserContext(), userID, input.BirthDate, input.CPF)
	if err != nil {
		return err
	}
	return utils.Success(c, profile)
}

// Search resolves a transfer recipient by exact email.
func (h *UserHandler) Search(c *fiber.Ctx) error {
	summary, err := h.userService.Search(c.UserContext(), c.Query("email"))
	if err != nil {
		return err
	}
	return utils.Success(c, summary)
}
