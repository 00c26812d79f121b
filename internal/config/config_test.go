package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-access-secret")
	t.Setenv("AUTH_REFRESH_SECRET", "test-refresh-secret")
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	setSecrets(t)

	cfg, _, err := load("test", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 5000.0, cfg.Wallet.FraudThreshold)
	assert.Equal(t, 100000.0, cfg.Wallet.MaxTransferAmount)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "SafeFlow", cfg.Auth.TOTPIssuer)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	setSecrets(t)
	dir := t.TempDir()
	yaml := []byte("server:\n  port: 8080\nwallet:\n  fraud_threshold: 10000\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), yaml, 0o600))
	t.Setenv("SERVER_PORT", "9090")

	cfg, v, err := load("staging", dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10000.0, cfg.Wallet.FraudThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NotEmpty(t, v.ConfigFileUsed())
}

func TestLoad_ValidationFailure(t *testing.T) {
	setSecrets(t)
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, _, err := load("test", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_REFRESH_SECRET", "")

	_, _, err := load("test", t.TempDir())
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Setenv("SAFEFLOW_TEST_INT", "42")
	t.Setenv("SAFEFLOW_TEST_BAD", "forty-two")

	assert.Equal(t, 42, GetIntEnv("SAFEFLOW_TEST_INT", 1))
	assert.Equal(t, 1, GetIntEnv("SAFEFLOW_TEST_BAD", 1))
	assert.Equal(t, "fallback", GetEnv("SAFEFLOW_TEST_UNSET", "fallback"))
}
