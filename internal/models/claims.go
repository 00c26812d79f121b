package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes
const (
	TokenPurposeAccess    = "access"
	TokenPurposeRefresh   = "refresh"
	TokenPurposeChallenge = "2fa"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	Purpose      string    `json:"purpose"`
	TokenVersion int       `json:"token_version"`
}
