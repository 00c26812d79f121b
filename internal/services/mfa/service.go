// Package mfa manages time-based one-time password second factors.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/repositories"
)

const (
	DefaultIssuer = "SafeFlow"
	period        = 30
)

var validateOpts = totp.ValidateOpts{
	Period:    period,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type SetupResult struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

type Service interface {
	Setup(ctx context.Context, userID uuid.UUID) (*SetupResult, error)
	Enable(ctx context.Context, userID uuid.UUID, code string) error
	Validate(secret, code string) bool
}

// ProfileCache drops cached profiles that embed the 2FA flag.
type ProfileCache interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store  repositories.Store
	cache  ProfileCache
	issuer string
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates the second factor service. cache may be nil.
func NewService(store repositories.Store, cache ProfileCache, issuer string, logger *slog.Logger) Service {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, cache: cache, issuer: issuer, now: time.Now, logger: logger.With("component", "mfa")}
}

// Setup replaces any pending secret and leaves the factor disabled until
// Enable confirms the user can produce codes. An enabled factor is never
// replaced.
func (s *service) Setup(ctx context.Context, userID uuid.UUID) (*SetupResult, error) {
	var result *SetupResult
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("get user: %w", err)
		}
		if user.TwoFAEnabled {
			return apperrors.ErrTwoFAAlreadyEnabled
		}

		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.issuer,
			AccountName: user.Email,
			Period:      period,
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			return fmt.Errorf("generate totp secret: %w", err)
		}

		user.TwoFASecret = key.Secret()
		user.TwoFAEnabled = false
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("store totp secret: %w", err)
		}
		result = &SetupResult{Secret: key.Secret(), URL: key.URL()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return result, nil
}

func (s *service) Enable(ctx context.Context, userID uuid.UUID, code string) error {
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("get user: %w", err)
		}
		if user.TwoFASecret == "" {
			return apperrors.ErrTwoFANotSetUp
		}
		if !s.Validate(user.TwoFASecret, code) {
			return apperrors.ErrInvalidCode
		}

		user.TwoFAEnabled = true
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("enable 2fa: %w", err)
		}
		s.logger.InfoContext(ctx, "2fa enabled", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(context.WithoutCancel(ctx), userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate profile cache", "user_id", userID, "error", err)
	}
}

// Validate accepts the code for the current period or one either side.
func (s *service) Validate(secret, code string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || len(code) != otp.DigitsSix.Length() {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, s.now().UTC(), validateOpts)
	return err == nil && ok
}
