package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InitialCreditScore = 600
	CPFLength          = 11
	BirthDateLayout    = "2006-01-02"
)

type User struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string          `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string          `gorm:"column:password_hash" json:"-"`
	Name         string          `gorm:"not null" json:"name"`
	BirthDate    *time.Time      `gorm:"type:date" json:"birth_date,omitempty"`
	CPF          *string         `gorm:"column:cpf;size:11" json:"cpf,omitempty"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	TwoFAEnabled bool            `gorm:"column:two_fa_enabled;default:false" json:"two_fa_enabled"`
	TwoFASecret  string          `gorm:"column:two_fa_secret" json:"-"`
	CreditScore  int             `gorm:"not null;default:600" json:"credit_score"`
	GoogleLogin  bool            `gorm:"default:false" json:"google_login"`
	TokenVersion int             `gorm:"default:1" json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProfileComplete reports whether the fields required for transfers
// (birth date and CPF) have been filled in.
func (u *User) ProfileComplete() bool {
	return u.BirthDate != nil && u.CPF != nil && *u.CPF != ""
}

// UserSummary is the only shape returned by user search.
type UserSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
