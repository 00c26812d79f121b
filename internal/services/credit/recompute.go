package credit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"safeflow/internal/models"
	"safeflow/internal/repositories"
)

// Recompute derives the score of user from the store's current counts and
// persists it. It must run inside the same transaction that changed the
// balance or appended the transaction, with user already locked.
func Recompute(ctx context.Context, store repositories.Store, user *models.User) error {
	txCount, err := store.Transactions().CountForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	fraudCount, err := store.FraudLogs().CountForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("count fraud logs: %w", err)
	}

	user.CreditScore = Score(user.Balance, txCount, fraudCount)
	if err := store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("update credit score: %w", err)
	}
	return nil
}

// RecomputeByID locks the user and recomputes its score.
func RecomputeByID(ctx context.Context, store repositories.Store, userID uuid.UUID) error {
	user, err := store.Users().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	return Recompute(ctx, store, user)
}
