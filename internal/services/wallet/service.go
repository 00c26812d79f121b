package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/models"
	"safeflow/internal/repositories"
	"safeflow/internal/services/credit"
	"safeflow/internal/services/fraud"
	"safeflow/internal/services/realtime"
)

const (
	DefaultFraudThreshold    = 5000
	DefaultMaxTransferAmount = 100000
	DefaultMaxDepositAmount  = 100000

	opDeposit  = "deposit"
	opTransfer = "transfer"
)

// service implements the Service interface
type service struct {
	store    repositories.Store
	cache    ProfileCache
	events   EventPublisher
	detector *fraud.Detector
	config   WalletConfig
	metrics  MetricsCollector
	logger   *slog.Logger
}

// NewService creates a new wallet service. cache and events may be nil.
func NewService(
	store repositories.Store,
	cache ProfileCache,
	events EventPublisher,
	config WalletConfig,
	metrics MetricsCollector,
	logger *slog.Logger,
) Service {
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	if config.FraudThreshold.IsZero() {
		config.FraudThreshold = decimal.NewFromInt(DefaultFraudThreshold)
	}
	if config.MaxTransferAmount.IsZero() {
		config.MaxTransferAmount = decimal.NewFromInt(DefaultMaxTransferAmount)
	}
	if config.MaxDepositAmount.IsZero() {
		config.MaxDepositAmount = decimal.NewFromInt(DefaultMaxDepositAmount)
	}

	return &service{
		store:    store,
		cache:    cache,
		events:   events,
		detector: fraud.NewDetector(config.FraudThreshold),
		config:   config,
		metrics:  metrics,
		logger:   logger.With("component", "wallet"),
	}
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &Summary{
		Balance:     user.Balance,
		CreditScore: user.CreditScore,
		ScoreLabel:  credit.Label(user.CreditScore),
	}, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	items, total, err := s.store.Transactions().ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return items, total, nil
}

// finish records the outcome of a money movement.
func (s *service) finish(op string, start time.Time, err error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	result := "success"
	if err != nil {
		result = "error"
		if de, ok := apperrors.As(err); ok {
			result = de.Code
		}
	}
	s.metrics.RecordOperationResult(op, result)
}

// afterCommit runs the side effects of a committed change. The request
// context may already be cancelled by the time it runs.
func (s *service) afterCommit(ctx context.Context, userIDs []uuid.UUID, events []realtime.Event) {
	ctx = context.WithoutCancel(ctx)

	if s.cache != nil {
		for _, id := range userIDs {
			if err := s.cache.InvalidateUser(ctx, id); err != nil {
				s.logger.WarnContext(ctx, "failed to invalidate profile cache", "user_id", id, "error", err)
			}
		}
	}

	if s.events == nil {
		return
	}
	for _, evt := range events {
		if err := s.events.Publish(ctx, evt); err != nil {
			s.logger.WarnContext(ctx, "failed to publish event",
				"type", evt.Type,
				"user_id", evt.UserID,
				"error", err,
			)
		}
	}
}
