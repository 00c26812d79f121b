package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"safeflow/internal/services/wallet"
	"safeflow/internal/utils"
	"safeflow/internal/validation"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	summary, err := h.walletService.Balance(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return utils.Success(c, summary)
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	res, err := h.walletService.Deposit(c.UserContext(), userID, input.Amount)
	if err != nil {
		return err
	}

	return utils.Success(c, fiber.Map{
		"message":      "Deposit completed",
		"balance":      res.Balance,
		"credit_score": res.CreditScore,
		"transaction":  res.Transaction,
	})
}

// Transfer accepts the recipient as "recipient" (email or id), or the more
// explicit "recipient_email" / "recipient_id".
func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var input struct {
		Recipient      string          `json:"recipient"`
		RecipientEmail string          `json:"recipient_email"`
		RecipientID    string          `json:"recipient_id"`
		Amount         decimal.Decimal `json:"amount"`
	}
	if err := parseBody(c, &input); err != nil {
		return err
	}

	recipient := input.Recipient
	if recipient == "" {
		recipient = input.RecipientEmail
	}
	if recipient == "" {
		recipient = input.RecipientID
	}

	v := validation.New()
	v.Required("recipient", recipient)
	if !v.Valid() {
		return validationFailed(c, v)
	}

	res, err := h.walletService.Transfer(c.UserContext(), wallet.TransferRequest{
		SenderID:  userID,
		Recipient: recipient,
		Amount:    input.Amount,
	})
	if err != nil {
		return err
	}

	return utils.Success(c, fiber.Map{
		"message":     "Transfer to " + res.RecipientName + " completed",
		"balance":     res.SenderBalance,
		"flagged":     res.Flagged(),
		"transaction": res.Transaction,
	})
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	page := utils.GetPagination(c)
	items, total, err := h.walletService.History(c.UserContext(), userID, page.Limit, page.Offset)
	if err != nil {
		return err
	}

	page.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(items, page))
}
