package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"safeflow/internal/models"
)

// Service defines the main wallet service interface
type Service interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*DepositResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)

	Balance(ctx context.Context, userID uuid.UUID) (*Summary, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error)
}
