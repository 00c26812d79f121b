package mfa

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "safeflow/internal/errors"
	"safeflow/internal/models"
	"safeflow/internal/repositories/cache"
	"safeflow/internal/repositories/memory"
)

func setup(t *testing.T) (*service, *memory.Store, *models.User) {
	t.Helper()
	store := memory.NewStore()
	user := &models.User{Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return NewService(store, nil, "", nil).(*service), store, user
}

func TestService_SetupAndEnable(t *testing.T) {
	ctx := context.Background()
	svc, store, user := setup(t)

	res, err := svc.Setup(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Secret)
	assert.True(t, strings.HasPrefix(res.URL, "otpauth://totp/"), res.URL)
	assert.Contains(t, res.URL, "issuer=SafeFlow")

	stored, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Secret, stored.TwoFASecret)
	assert.False(t, stored.TwoFAEnabled)

	assert.ErrorIs(t, svc.Enable(ctx, user.ID, "000000"), apperrors.ErrInvalidCode)

	code, err := totp.GenerateCode(res.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, user.ID, code))

	stored, err = store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TwoFAEnabled)
}

func TestService_SetupKeepsEnabledFactor(t *testing.T) {
	ctx := context.Background()
	svc, store, user := setup(t)

	res, err := svc.Setup(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(res.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, user.ID, code))

	again, err := svc.Setup(ctx, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrTwoFAAlreadyEnabled)
	assert.Nil(t, again)

	stored, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TwoFAEnabled)
	assert.Equal(t, res.Secret, stored.TwoFASecret)
}

func TestService_InvalidatesCachedProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	user := &models.User{Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, store.Users().Create(ctx, user))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	profiles := cache.NewCacheService(client, time.Minute)
	key := "user:profile:" + user.ID.String()

	svc := NewService(store, profiles, "", nil)

	require.NoError(t, profiles.CacheProfile(ctx, user.ID, map[string]bool{"two_fa_enabled": false}))
	res, err := svc.Setup(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	require.NoError(t, profiles.CacheProfile(ctx, user.ID, map[string]bool{"two_fa_enabled": false}))
	code, err := totp.GenerateCode(res.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, user.ID, code))
	assert.False(t, mr.Exists(key))

	// A rejected code changes nothing, so the cached copy stays.
	require.NoError(t, profiles.CacheProfile(ctx, user.ID, map[string]bool{"two_fa_enabled": true}))
	assert.ErrorIs(t, svc.Enable(ctx, user.ID, "000000"), apperrors.ErrInvalidCode)
	assert.True(t, mr.Exists(key))
}

func TestService_EnableWithoutSetup(t *testing.T) {
	svc, _, user := setup(t)
	err := svc.Enable(context.Background(), user.ID, "123456")
	assert.ErrorIs(t, err, apperrors.ErrTwoFANotSetUp)

	err = svc.Enable(context.Background(), uuid.New(), "123456")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestService_ValidateWindow(t *testing.T) {
	svc, _, _ := setup(t)
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "SafeFlow", AccountName: "bob@example.com"})
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 15, 0, time.UTC)
	svc.now = func() time.Time { return now }

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"current period", now, true},
		{"previous period", now.Add(-30 * time.Second), true},
		{"next period", now.Add(30 * time.Second), true},
		{"two periods ago", now.Add(-60 * time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := totp.GenerateCode(key.Secret(), tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.Validate(key.Secret(), code))
		})
	}

	assert.False(t, svc.Validate("", "123456"))
	assert.False(t, svc.Validate(key.Secret(), "12345"))
}
