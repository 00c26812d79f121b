package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/models"
	"safeflow/internal/repositories"
	"safeflow/internal/services/credit"
	"safeflow/internal/services/fraud"
	"safeflow/internal/services/realtime"
	"safeflow/internal/services/user"
	"safeflow/internal/utils"
	"safeflow/internal/validation"
)

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyLoginCode(ctx context.Context, challengeToken, code string) (*LoginResult, error)
	GoogleLogin(ctx context.Context, idToken string) (*LoginResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	GetUserTokenVersion(ctx context.Context, userID uuid.UUID) (int, error)
}

type service struct {
	store    repositories.Store
	tokens   *utils.TokenIssuer
	codes    CodeValidator
	google   GoogleVerifier
	detector *fraud.Detector
	events   EventPublisher
	cache    ProfileCache
	metrics  LoginRecorder
	logger   *slog.Logger
	cost     int

	// dummyHash is compared against on unknown emails so a miss costs the
	// same bcrypt work as a wrong password.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

type Option func(*service)

func WithGoogleVerifier(v GoogleVerifier) Option {
	return func(s *service) { s.google = v }
}

func WithEvents(p EventPublisher) Option {
	return func(s *service) { s.events = p }
}

// WithProfileCache invalidates cached profiles when a failed login changes
// the credit score.
func WithProfileCache(c ProfileCache) Option {
	return func(s *service) { s.cache = c }
}

func WithMetrics(m LoginRecorder) Option {
	return func(s *service) { s.metrics = m }
}

// WithBcryptCost lowers the hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *service) { s.cost = cost }
}

func NewService(
	store repositories.Store,
	tokens *utils.TokenIssuer,
	codes CodeValidator,
	detector *fraud.Detector,
	logger *slog.Logger,
	opts ...Option,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{
		store:    store,
		tokens:   tokens,
		codes:    codes,
		detector: detector,
		metrics:  noopRecorder{},
		logger:   logger.With("component", "auth"),
		cost:     bcrypt.DefaultCost,
		compare:  bcrypt.CompareHashAndPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	if hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost); err == nil {
		s.dummyHash = hash
	}
	return s
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(input.Email)
	if !validation.IsEmail(email) {
		return nil, apperrors.ErrInvalidEmail
	}
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if len(input.Password) < validation.MinPasswordLength {
		return nil, apperrors.ErrPasswordTooShort
	}
	if len(input.Password) > validation.MaxPasswordLength {
		return nil, apperrors.ErrPasswordTooLong
	}
	birthDate, cpf, err := user.ValidateProfileFields(input.BirthDate, input.CPF)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > validation.MaxNameLength {
		return nil, apperrors.ErrNameRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		BirthDate:    &birthDate,
		CPF:          &cpf,
		Balance:      decimal.Zero,
		CreditScore:  models.InitialCreditScore,
		TokenVersion: 1,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, apperrors.ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = validation.NormalizeEmail(email)
	u, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.checkPassword(nil, password)
			s.metrics.RecordLogin(MethodPassword, "invalid_credentials")
			s.logger.InfoContext(ctx, "login failed: unknown email")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !s.checkPassword(u, password) {
		s.metrics.RecordLogin(MethodPassword, "invalid_credentials")
		s.logger.WarnContext(ctx, "login failed: wrong password", "user_id", u.ID)
		s.recordFailedLogin(ctx, u)
		return nil, apperrors.ErrInvalidCredentials
	}

	if u.TwoFAEnabled {
		return s.challenge(u, MethodPassword)
	}
	return s.issue(ctx, u, MethodPassword)
}

func (s *service) VerifyLoginCode(ctx context.Context, challengeToken, code string) (*LoginResult, error) {
	claims, err := s.tokens.ParseToken(challengeToken, models.TokenPurposeChallenge)
	if err != nil {
		s.metrics.RecordLogin(MethodTOTP, "invalid_token")
		return nil, apperrors.ErrInvalidToken
	}

	u, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.TokenVersion != claims.TokenVersion {
		return nil, apperrors.ErrInvalidToken
	}
	if !u.TwoFAEnabled || !s.codes.Validate(u.TwoFASecret, code) {
		s.metrics.RecordLogin(MethodTOTP, "invalid_code")
		s.logger.WarnContext(ctx, "login failed: invalid 2fa code", "user_id", u.ID)
		return nil, apperrors.ErrInvalidCode
	}
	return s.issue(ctx, u, MethodTOTP)
}

// GoogleLogin signs in, or signs up, the owner of a verified Google id
// token. Accounts created here lack birth date and CPF until completed.
func (s *service) GoogleLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	if s.google == nil {
		return nil, apperrors.ErrInvalidToken.WithMessage("google login is not enabled")
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.metrics.RecordLogin(MethodGoogle, "invalid_token")
		if errors.Is(err, ErrGoogleTokenRejected) {
			s.logger.InfoContext(ctx, "google token rejected", "error", err)
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("verify google token: %w", err)
	}

	email := validation.NormalizeEmail(identity.Email)
	u, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrNotFound):
		u, err = s.createGoogleUser(ctx, email, identity.Name)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("get user: %w", err)
	}

	if u.TwoFAEnabled {
		return s.challenge(u, MethodGoogle)
	}
	return s.issue(ctx, u, MethodGoogle)
}

func (s *service) createGoogleUser(ctx context.Context, email, name string) (*models.User, error) {
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u := &models.User{
		Email:        email,
		Name:         name,
		Balance:      decimal.Zero,
		CreditScore:  models.InitialCreditScore,
		GoogleLogin:  true,
		TokenVersion: 1,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			// Lost a race with a concurrent first login.
			return s.store.Users().GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("create google user: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered via google", "user_id", u.ID)
	return u, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseToken(refreshToken, models.TokenPurposeRefresh)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	u, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.TokenVersion != claims.TokenVersion {
		return nil, apperrors.ErrInvalidToken.WithMessage("token version mismatch")
	}

	access, refresh, err := s.tokens.GenerateTokens(u)
	if err != nil {
		return nil, err
	}
	return s.pair(access, refresh), nil
}

// Logout revokes every token issued so far by bumping the token version.
func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Users().IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("increment token version: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", userID)
	return nil
}

func (s *service) GetUserTokenVersion(ctx context.Context, userID uuid.UUID) (int, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, apperrors.ErrUserNotFound
		}
		return 0, fmt.Errorf("get user: %w", err)
	}
	return u.TokenVersion, nil
}

func (s *service) issue(ctx context.Context, u *models.User, method string) (*LoginResult, error) {
	access, refresh, err := s.tokens.GenerateTokens(u)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(method, "success")
	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID, "method", method)
	return &LoginResult{
		User:         u,
		Tokens:       s.pair(access, refresh),
		NeedsProfile: !u.ProfileComplete(),
	}, nil
}

func (s *service) pair(access, refresh string) *TokenPair {
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        s.tokens.AccessTTL(),
		RefreshExpiresIn: s.tokens.RefreshTTL(),
	}
}

func (s *service) challenge(u *models.User, method string) (*LoginResult, error) {
	token, err := s.tokens.GenerateChallenge(u)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(method, "mfa_required")
	return &LoginResult{User: u, MFARequired: true, ChallengeToken: token}, nil
}

// checkPassword always runs one bcrypt comparison. Accounts without a
// password (Google sign-ups) and a nil user are compared against dummyHash
// and never match.
func (s *service) checkPassword(u *models.User, password string) bool {
	hash := s.dummyHash
	if u != nil && u.PasswordHash != "" {
		hash = []byte(u.PasswordHash)
	}
	err := s.compare(hash, []byte(password))
	return u != nil && u.PasswordHash != "" && err == nil
}

// recordFailedLogin appends the fraud entry and refreshes the score. Its
// failure never changes the login response.
func (s *service) recordFailedLogin(ctx context.Context, u *models.User) {
	entry := s.detector.FailedLogin(u)
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.FraudLogs().Create(ctx, entry); err != nil {
			return err
		}
		return credit.RecomputeByID(ctx, tx, u.ID)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record failed login", "user_id", u.ID, "error", err)
		return
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(context.WithoutCancel(ctx), u.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate profile cache", "user_id", u.ID, "error", err)
		}
	}
	if s.events != nil {
		evt := realtime.NewEvent(realtime.EventFraudLogCreated, u.ID, entry.ID)
		if err := s.events.Publish(context.WithoutCancel(ctx), evt); err != nil {
			s.logger.WarnContext(ctx, "failed to publish event", "type", evt.Type, "user_id", u.ID, "error", err)
		}
	}
}
