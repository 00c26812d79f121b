package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"safeflow/internal/models"
	"safeflow/internal/services/realtime"
)

// TransferRequest is a transfer initiated by SenderID. Recipient is either
// an account id or an exact email address.
type TransferRequest struct {
	SenderID  uuid.UUID
	Recipient string
	Amount    decimal.Decimal
}

type TransferResult struct {
	Transaction   *models.Transaction
	SenderBalance decimal.Decimal
	RecipientName string
	FraudLog      *models.FraudLog
}

// Flagged reports whether the transfer produced a fraud log entry.
func (r *TransferResult) Flagged() bool {
	return r.FraudLog != nil
}

type DepositResult struct {
	Transaction *models.Transaction
	Balance     decimal.Decimal
	CreditScore int
}

// Summary is the balance card shown on the dashboard.
type Summary struct {
	Balance     decimal.Decimal `json:"balance"`
	CreditScore int             `json:"credit_score"`
	ScoreLabel  string          `json:"score_label"`
}

// WalletConfig holds the money movement limits. Zero values are replaced
// by defaults in NewService.
type WalletConfig struct {
	FraudThreshold    decimal.Decimal
	MaxTransferAmount decimal.Decimal
	MaxDepositAmount  decimal.Decimal
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordTransactionVolume(txType string, amount float64)
	RecordFraudFlag(severity string)
}

// ProfileCache is invalidated after every committed balance change.
type ProfileCache interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt realtime.Event) error
}
