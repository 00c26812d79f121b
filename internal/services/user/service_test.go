package user

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/models"
	"safeflow/internal/repositories/cache"
	"safeflow/internal/repositories/memory"
	"safeflow/internal/services/realtime"
)

func seed(t *testing.T, store *memory.Store) *models.User {
	t.Helper()
	u := &models.User{
		Email:       "alice@example.com",
		Name:        "Alice",
		Balance:     decimal.NewFromInt(1000),
		CreditScore: 700,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func TestService_Search(t *testing.T) {
	store := memory.NewStore()
	alice := seed(t, store)
	svc := NewService(store, nil, nil, nil)

	tests := []struct {
		name    string
		email   string
		want    *models.UserSummary
		wantErr error
	}{
		{"exact", "alice@example.com", &models.UserSummary{ID: alice.ID, Name: "Alice"}, nil},
		{"normalized", "  Alice@Example.COM ", &models.UserSummary{ID: alice.ID, Name: "Alice"}, nil},
		{"unknown", "bob@example.com", nil, apperrors.ErrUserNotFound},
		{"partial is not a match", "alice@example", nil, apperrors.ErrInvalidEmail},
		{"empty", "   ", nil, apperrors.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(context.Background(), tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ProfileReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	alice := seed(t, store)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	profiles := cache.NewCacheService(client, time.Minute)

	svc := NewService(store, profiles, nil, nil)

	p, err := svc.Profile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Good", p.ScoreLabel)
	assert.False(t, p.ProfileComplete)
	assert.True(t, mr.Exists("user:profile:"+alice.ID.String()))

	// A change behind the service's back is not seen until invalidation.
	stored, err := store.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	stored.Name = "Alice Renamed"
	require.NoError(t, store.Users().Update(ctx, stored))

	p, err = svc.Profile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)

	require.NoError(t, profiles.InvalidateUser(ctx, alice.ID))
	p, err = svc.Profile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Renamed", p.Name)
	assert.True(t, p.Balance.Equal(decimal.NewFromInt(1000)))
}

func TestService_ProfileCacheDown(t *testing.T) {
	store := memory.NewStore()
	alice := seed(t, store)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(store, cache.NewCacheService(client, time.Minute), nil, nil)

	p, err := svc.Profile(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.ID)

	_, err = svc.Profile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

type recordingPublisher struct {
	events []realtime.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt realtime.Event) error {
	r.events = append(r.events, evt)
	return nil
}

func TestService_CompleteProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	alice := seed(t, store)
	pub := &recordingPublisher{}
	svc := NewService(store, nil, pub, nil)

	_, err := svc.CompleteProfile(ctx, alice.ID, "1990-04-12", "1234567890")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCPF)

	_, err = svc.CompleteProfile(ctx, alice.ID, "12/04/1990", "12345678901")
	assert.ErrorIs(t, err, apperrors.ErrInvalidBirthDate)

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	_, err = svc.CompleteProfile(ctx, alice.ID, future, "12345678901")
	assert.ErrorIs(t, err, apperrors.ErrInvalidBirthDate)

	p, err := svc.CompleteProfile(ctx, alice.ID, "1990-04-12", "12345678901")
	require.NoError(t, err)
	assert.True(t, p.ProfileComplete)
	assert.Equal(t, "12345678901", *p.CPF)

	require.Len(t, pub.events, 1)
	assert.Equal(t, realtime.EventProfileUpdated, pub.events[0].Type)

	_, err = svc.CompleteProfile(ctx, uuid.New(), "1990-04-12", "12345678901")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
