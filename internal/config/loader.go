package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var defaults = map[string]interface{}{
	"app.name": "safeflow",
	"app.env":  "development",

	"server.port":             3000,
	"server.allow_origins":    "http://localhost:5173",
	"server.read_timeout":     "10s",
	"server.write_timeout":    "10s",
	"server.shutdown_timeout": "15s",
	"server.auth_rate_limit":  5,

	"storage.driver": "memory",

	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "",
	"database.name":              "safeflow",
	"database.sslmode":           "disable",
	"database.max_idle_conns":    10,
	"database.max_open_conns":    100,
	"database.conn_max_lifetime": "1h",

	"redis.enabled":   false,
	"redis.host":      "localhost",
	"redis.port":      "6379",
	"redis.password":  "",
	"redis.db":        0,
	"redis.cache_ttl": "15m",

	"auth.jwt_secret":       "",
	"auth.refresh_secret":   "",
	"auth.issuer":           "safeflow-api",
	"auth.access_ttl":       "15m",
	"auth.refresh_ttl":      "168h",
	"auth.challenge_ttl":    "5m",
	"auth.totp_issuer":      "SafeFlow",
	"auth.google_client_id": "",

	"wallet.fraud_threshold":     5000,
	"wallet.max_transfer_amount": 100000,
	"wallet.max_deposit_amount":  100000,

	"logging.level":        "info",
	"logging.format":       "json",
	"logging.file":         "",
	"logging.max_size_mb":  100,
	"logging.max_backups":  3,
	"logging.max_age_days": 28,

	"sentry.dsn":                "",
	"sentry.traces_sample_rate": 0.0,

	"realtime.driver":            "local",
	"realtime.channel":           "safeflow_events",
	"realtime.subscriber_buffer": 16,

	"metrics.enabled": true,
}

// Load reads .env files, then ./configs/<APP_ENV>.yaml when it exists, then
// environment variables (server.port -> SERVER_PORT), and validates the
// result. The returned viper instance is what Watch observes.
func Load() (*Config, *viper.Viper, error) {
	LoadEnv()
	return load(GetEnv("APP_ENV", "development"), "./configs")
}

func load(env, dir string) (*Config, *viper.Viper, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.Set("app.env", env)

	v.SetConfigFile(fmt.Sprintf("%s/%s.yaml", strings.TrimRight(dir, "/"), env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, v, nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
