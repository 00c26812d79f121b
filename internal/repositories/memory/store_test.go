package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeflow/internal/models"
	"safeflow/internal/repositories"
)

func seedUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, Balance: decimal.NewFromInt(100), CreditScore: models.InitialCreditScore}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUsers_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com")

	assert.NotEqual(t, uuid.Nil, alice.ID)
	assert.Equal(t, 1, alice.TokenVersion)

	byEmail, err := s.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = s.Users().GetByEmail(ctx, "ALICE@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	err = s.Users().Create(ctx, &models.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateEmail)
}

func TestUsers_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com")

	got, err := s.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	got.Balance = decimal.NewFromInt(1_000_000)

	again, err := s.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(100)))
}

func TestExecuteInTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com")
	boom := errors.New("boom")

	err := s.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		u, err := tx.Users().GetByIDForUpdate(ctx, alice.ID)
		require.NoError(t, err)
		u.Balance = decimal.Zero
		require.NoError(t, tx.Users().Update(ctx, u))
		require.NoError(t, tx.Transactions().Create(ctx, &models.Transaction{ToUserID: alice.ID, Amount: decimal.NewFromInt(1)}))
		require.NoError(t, tx.FraudLogs().Create(ctx, &models.FraudLog{UserID: alice.ID, Description: "x"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(decimal.NewFromInt(100)))

	n, err := s.Transactions().CountForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.FraudLogs().CountForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExecuteInTransaction_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := seedUser(t, s, "alice@example.com")

	err := s.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return tx.ExecuteInTransaction(ctx, func(inner repositories.Store) error {
			return inner.Users().IncrementTokenVersion(ctx, alice.ID)
		})
	})
	require.NoError(t, err)

	u, err := s.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, u.TokenVersion)
}

func TestTransactions_ListNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	for i := 1; i <= 5; i++ {
		from := alice.ID
		require.NoError(t, s.Transactions().Create(ctx, &models.Transaction{
			FromUserID: &from,
			ToUserID:   bob.ID,
			Amount:     decimal.NewFromInt(int64(i)),
		}))
	}
	require.NoError(t, s.Transactions().Create(ctx, &models.Transaction{ToUserID: bob.ID, Amount: decimal.NewFromInt(99)}))

	page, total, err := s.Transactions().ListForUser(ctx, alice.ID, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.True(t, page[0].Amount.Equal(decimal.NewFromInt(4)))
	assert.True(t, page[1].Amount.Equal(decimal.NewFromInt(3)))

	n, err := s.Transactions().CountForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
}

func TestExecuteInTransaction_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().ExecuteInTransaction(ctx, func(repositories.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
