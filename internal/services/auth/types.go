package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"safeflow/internal/models"
	"safeflow/internal/services/realtime"
)

const (
	MethodPassword = "password"
	MethodTOTP     = "totp"
	MethodGoogle   = "google"
)

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	CPF       string `json:"cpf"`
}

type TokenPair struct {
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	ExpiresIn        time.Duration `json:"-"`
	RefreshExpiresIn time.Duration `json:"-"`
}

// LoginResult carries either a token pair or, when a second factor is
// required, a challenge token to present with the TOTP code.
type LoginResult struct {
	User           *models.User
	Tokens         *TokenPair
	MFARequired    bool
	ChallengeToken string
	NeedsProfile   bool
}

// CodeValidator checks a TOTP code against a stored secret.
type CodeValidator interface {
	Validate(secret, code string) bool
}

// ProfileCache drops a user's cached profile after a score change.
type ProfileCache interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

type LoginRecorder interface {
	RecordLogin(method, result string)
}

type EventPublisher interface {
	Publish(ctx context.Context, evt realtime.Event) error
}

type noopRecorder struct{}

func (noopRecorder) RecordLogin(string, string) {}
