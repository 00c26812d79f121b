// Package repositories provides the data access layer: the Store contract,
// its PostgreSQL implementation on GORM, and connection setup.
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"safeflow/internal/config"
	"safeflow/internal/models"
)

// InitDB opens the PostgreSQL connection, applies pool settings and runs
// migrations.
func InitDB(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			slog.NewLogLogger(log.Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("postgres connected", slog.String("host", cfg.Host), slog.String("database", cfg.Name))
	return db, nil
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}, &models.FraudLog{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// DropAllTables removes the ledger tables. Used by integration tests.
func DropAllTables(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.FraudLog{}, &models.Transaction{}, &models.User{})
}
