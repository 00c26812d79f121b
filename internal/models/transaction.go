package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeTransfer = "transfer"
	TransactionTypeDeposit  = "deposit"
)

const TransactionStatusCompleted = "completed"

// Transaction is immutable once written. FromUserID is nil for deposits.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FromUserID  *uuid.UUID      `gorm:"type:uuid;index" json:"from_user_id"`
	ToUserID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"to_user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Type        string          `gorm:"not null" json:"type"`
	Status      string          `gorm:"not null;default:'completed'" json:"status"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// Involves reports whether the user is the sender or the receiver.
func (t *Transaction) Involves(userID uuid.UUID) bool {
	if t.ToUserID == userID {
		return true
	}
	return t.FromUserID != nil && *t.FromUserID == userID
}
