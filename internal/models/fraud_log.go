package models

import (
	"time"

	"github.com/google/uuid"
)

// Fraud log severities
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type FraudLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Description string    `gorm:"not null" json:"description"`
	Severity    string    `gorm:"not null;default:'low'" json:"severity"`
	Metadata    JSON      `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
