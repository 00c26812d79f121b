package repositories

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"safeflow/internal/models"
)

// Runs only against a disposable database:
// SAFEFLOW_TEST_DSN="host=localhost user=postgres dbname=safeflow_test sslmode=disable" go test ./internal/repositories
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("SAFEFLOW_TEST_DSN")
	if dsn == "" {
		t.Skip("SAFEFLOW_TEST_DSN not set; skipping postgres integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, DropAllTables(db))
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = DropAllTables(db) })
	return db
}

func TestGormStore_UsersAndLedger(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewGormStore(db)

	alice := &models.User{Email: "alice@example.com", Name: "Alice", Balance: decimal.NewFromInt(100), CreditScore: 600}
	require.NoError(t, store.Users().Create(ctx, alice))
	assert.NotEqual(t, uuid.Nil, alice.ID)

	err := store.Users().Create(ctx, &models.User{Email: "alice@example.com", Name: "Dup"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = store.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Users().IncrementTokenVersion(ctx, alice.ID))
	got, err := store.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TokenVersion)

	require.NoError(t, store.Transactions().Create(ctx, &models.Transaction{
		ToUserID: alice.ID, Amount: decimal.NewFromInt(50), Type: models.TransactionTypeDeposit, Status: models.TransactionStatusCompleted,
	}))
	txs, total, err := store.Transactions().ListForUser(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].FromUserID)
}

func TestGormStore_TransactionRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewGormStore(db)

	alice := &models.User{Email: "alice@example.com", Name: "Alice", Balance: decimal.NewFromInt(100), CreditScore: 600}
	require.NoError(t, store.Users().Create(ctx, alice))

	boom := errors.New("boom")
	err := store.ExecuteInTransaction(ctx, func(tx Store) error {
		u, err := tx.Users().GetByIDForUpdate(ctx, alice.ID)
		if err != nil {
			return err
		}
		u.Balance = decimal.Zero
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
}
