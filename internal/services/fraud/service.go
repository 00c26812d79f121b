package fraud

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"safeflow/internal/models"
	"safeflow/internal/repositories"
)

type Service interface {
	ListLogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FraudLog, int64, error)
}

type service struct {
	store repositories.Store
}

func NewService(store repositories.Store) Service {
	return &service{store: store}
}

func (s *service) ListLogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FraudLog, int64, error) {
	logs, total, err := s.store.FraudLogs().ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list fraud logs: %w", err)
	}
	return logs, total, nil
}
