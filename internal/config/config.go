// Package config loads runtime settings from .env files, an optional
// per-environment YAML file and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env" validate:"oneof=development staging production test"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	AllowOrigins    string        `mapstructure:"allow_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AuthRateLimit   int           `mapstructure:"auth_rate_limit" validate:"gt=0"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres memory"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret" validate:"required,min=8"`
	RefreshSecret  string        `mapstructure:"refresh_secret" validate:"required,min=8"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTTL      time.Duration `mapstructure:"access_ttl" validate:"gt=0"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl" validate:"gt=0"`
	ChallengeTTL   time.Duration `mapstructure:"challenge_ttl" validate:"gt=0"`
	TOTPIssuer     string        `mapstructure:"totp_issuer" validate:"required"`
	GoogleClientID string        `mapstructure:"google_client_id"`
}

type WalletConfig struct {
	FraudThreshold    float64 `mapstructure:"fraud_threshold" validate:"gt=0"`
	MaxTransferAmount float64 `mapstructure:"max_transfer_amount" validate:"gtfield=FraudThreshold"`
	MaxDepositAmount  float64 `mapstructure:"max_deposit_amount" validate:"gt=0"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

type RealtimeConfig struct {
	Driver        string `mapstructure:"driver" validate:"oneof=local redis postgres"`
	Channel       string `mapstructure:"channel" validate:"required"`
	SubscriberBuf int    `mapstructure:"subscriber_buffer" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IsProduction reports whether the loaded config targets production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// LoadEnv loads variables from .env files if present.
func LoadEnv() {
	_ = godotenv.Load(".env.local", ".env")
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// IsProduction checks the process environment directly. Prefer
// Config.IsProduction once the config is loaded.
func IsProduction() bool {
	return GetEnv("APP_ENV", "development") == "production"
}
