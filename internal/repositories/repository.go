package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"safeflow/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already taken")
)

// Store is the persistence boundary for the ledger. Repositories obtained
// from the Store passed to ExecuteInTransaction's fn share one atomic unit:
// either every write made through them is applied or none is.
type Store interface {
	Users() UserRepository
	Transactions() TransactionRepository
	FraudLogs() FraudLogRepository

	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
}

type UserRepository interface {
	// Create assigns an ID when missing and fails with ErrDuplicateEmail
	// when the email is taken.
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail is an exact match on the stored (normalized) email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByIDForUpdate locks the row until the surrounding transaction
	// ends. Outside a transaction it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)

	Update(ctx context.Context, user *models.User) error

	IncrementTokenVersion(ctx context.Context, id uuid.UUID) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error

	// CountForUser counts transactions where the user is sender or receiver.
	CountForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// ListForUser returns the user's transactions newest first, plus the
	// total count.
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error)
}

type FraudLogRepository interface {
	Create(ctx context.Context, entry *models.FraudLog) error
	CountForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FraudLog, int64, error)
}
