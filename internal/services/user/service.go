// Package user serves profile reads, profile completion and recipient search.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/models"
	"safeflow/internal/repositories"
	"safeflow/internal/services/credit"
	"safeflow/internal/services/realtime"
	"safeflow/internal/validation"
)

// Profile is the user's own view of their account.
type Profile struct {
	ID              uuid.UUID       `json:"id"`
	Email           string          `json:"email"`
	Name            string          `json:"name"`
	BirthDate       *time.Time      `json:"birth_date,omitempty"`
	CPF             *string         `json:"cpf,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
	CreditScore     int             `json:"credit_score"`
	ScoreLabel      string          `json:"score_label"`
	TwoFAEnabled    bool            `json:"two_fa_enabled"`
	GoogleLogin     bool            `json:"google_login"`
	ProfileComplete bool            `json:"profile_complete"`
	CreatedAt       time.Time       `json:"created_at"`
}

func NewProfile(u *models.User) *Profile {
	return &Profile{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		BirthDate:       u.BirthDate,
		CPF:             u.CPF,
		Balance:         u.Balance,
		CreditScore:     u.CreditScore,
		ScoreLabel:      credit.Label(u.CreditScore),
		TwoFAEnabled:    u.TwoFAEnabled,
		GoogleLogin:     u.GoogleLogin,
		ProfileComplete: u.ProfileComplete(),
		CreatedAt:       u.CreatedAt,
	}
}

type ProfileCache interface {
	CacheProfile(ctx context.Context, userID uuid.UUID, profile interface{}) error
	GetProfile(ctx context.Context, userID uuid.UUID, dest interface{}) (bool, error)
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt realtime.Event) error
}

type Service interface {
	Search(ctx context.Context, email string) (*models.UserSummary, error)
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	CompleteProfile(ctx context.Context, userID uuid.UUID, birthDate, cpf string) (*Profile, error)
}

type service struct {
	store  repositories.Store
	cache  ProfileCache
	events EventPublisher
	logger *slog.Logger
}

// NewService builds the user service. cache and events may be nil.
func NewService(store repositories.Store, cache ProfileCache, events EventPublisher, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, cache: cache, events: events, logger: logger.With("component", "user")}
}

// Search is an exact match on the normalized email. It never lists users.
func (s *service) Search(ctx context.Context, email string) (*models.UserSummary, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || !validation.IsEmail(email) {
		return nil, apperrors.ErrInvalidEmail
	}

	u, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("search user: %w", err)
	}
	return &models.UserSummary{ID: u.ID, Name: u.Name}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if s.cache != nil {
		var cached Profile
		hit, err := s.cache.GetProfile(ctx, userID, &cached)
		if err != nil {
			s.logger.WarnContext(ctx, "profile cache read failed", "user_id", userID, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	profile := NewProfile(u)

	if s.cache != nil {
		if err := s.cache.CacheProfile(ctx, userID, profile); err != nil {
			s.logger.WarnContext(ctx, "profile cache write failed", "user_id", userID, "error", err)
		}
	}
	return profile, nil
}

func (s *service) CompleteProfile(ctx context.Context, userID uuid.UUID, birthDate, cpf string) (*Profile, error) {
	date, normalizedCPF, err := ValidateProfileFields(birthDate, cpf)
	if err != nil {
		return nil, err
	}

	var updated *models.User
	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		u, err := tx.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("get user: %w", err)
		}
		u.BirthDate = &date
		u.CPF = &normalizedCPF
		if err := tx.Users().Update(ctx, u); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	if s.cache != nil {
		if err := s.cache.InvalidateUser(bg, userID); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate profile cache", "user_id", userID, "error", err)
		}
	}
	if s.events != nil {
		evt := realtime.NewEvent(realtime.EventProfileUpdated, userID, userID)
		if err := s.events.Publish(bg, evt); err != nil {
			s.logger.WarnContext(ctx, "failed to publish event", "type", evt.Type, "user_id", userID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "profile completed", "user_id", userID)
	return NewProfile(updated), nil
}

// ValidateProfileFields applies the identity rules shared by registration
// and profile completion.
func ValidateProfileFields(birthDate, cpf string) (time.Time, string, error) {
	cpf = strings.TrimSpace(cpf)
	if !validation.IsCPF(cpf) {
		return time.Time{}, "", apperrors.ErrInvalidCPF
	}
	date, err := validation.ParseDate(birthDate)
	if err != nil {
		return time.Time{}, "", apperrors.ErrInvalidBirthDate
	}
	if !date.Before(time.Now()) {
		return time.Time{}, "", apperrors.ErrInvalidBirthDate.WithMessage("birth date must be in the past")
	}
	return date, cpf, nil
}
