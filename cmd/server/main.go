// Package main is the entry point for the SafeFlow API.
// It loads configuration, wires storage, cache, realtime delivery and
// services, then serves HTTP until SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"safeflow/internal/config"
	"safeflow/internal/handlers"
	"safeflow/internal/health"
	"safeflow/internal/logger"
	"safeflow/internal/metrics"
	"safeflow/internal/middleware"
	"safeflow/internal/repositories"
	"safeflow/internal/repositories/cache"
	"safeflow/internal/repositories/memory"
	"safeflow/internal/routes"
	"safeflow/internal/services/auth"
	"safeflow/internal/services/fraud"
	"safeflow/internal/services/mfa"
	"safeflow/internal/services/realtime"
	"safeflow/internal/services/user"
	"safeflow/internal/services/wallet"
	"safeflow/internal/utils"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "safeflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	sentryEnabled := cfg.Sentry.DSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.App.Env,
			Release:          version,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log, level := logger.New(logger.Options{Logging: cfg.Logging, Sentry: sentryEnabled})
	slog.SetDefault(log)
	config.Watch(v, level, log)

	checker := health.NewChecker(log, 2*time.Second)

	var (
		store repositories.Store
		db    *gorm.DB
	)
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		store = memory.NewStore()
	default:
		db, err = repositories.InitDB(cfg.Database, log)
		if err != nil {
			return err
		}
		defer closeDB(db, log)
		store = repositories.NewGormStore(db)
		checker.AddCheck("postgres", health.NewDBChecker(db))
	}

	var (
		redisClient  *redis.Client
		cacheService *cache.CacheService
	)
	if cfg.Redis.Enabled {
		redisClient = cache.NewRedisClient(&cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheService = cache.NewCacheService(redisClient, cfg.Redis.CacheTTL)
		defer func() {
			if err := cacheService.Close(); err != nil {
				log.Warn("failed to close redis", slog.Any("error", err))
			}
		}()
		checker.AddCheck("redis", health.NewRedisChecker(redisClient))
	}

	stopStats := watchPoolStats(log, time.Minute, db, cacheService)
	defer stopStats()

	broker, err := newBroker(cfg, db, redisClient, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Warn("failed to close realtime broker", slog.Any("error", err))
		}
	}()

	tokens, err := utils.NewTokenIssuer(cfg.Auth)
	if err != nil {
		return err
	}

	// Interfaces stay nil rather than holding a nil *Collector.
	var (
		collector      *metrics.Collector
		walletMetrics  wallet.MetricsCollector
		httpMetrics    middleware.HTTPRecorder
		gauge          handlers.SubscriberGauge
		metricsHandler http.Handler
	)
	authOpts := []auth.Option{auth.WithEvents(broker)}
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		walletMetrics = collector
		httpMetrics = collector
		gauge = collector
		metricsHandler = collector.Handler()
		authOpts = append(authOpts, auth.WithMetrics(collector))
	}
	if cfg.Auth.GoogleClientID != "" {
		authOpts = append(authOpts, auth.WithGoogleVerifier(
			auth.NewTokenInfoVerifier(cfg.Auth.GoogleClientID, &http.Client{Timeout: 10 * time.Second}),
		))
	}

	var (
		walletCache wallet.ProfileCache
		userCache   user.ProfileCache
		mfaCache    mfa.ProfileCache
	)
	if cacheService != nil {
		walletCache = cacheService
		userCache = cacheService
		mfaCache = cacheService
		authOpts = append(authOpts, auth.WithProfileCache(cacheService))
	}

	detector := fraud.NewDetector(decimal.NewFromFloat(cfg.Wallet.FraudThreshold))
	mfaService := mfa.NewService(store, mfaCache, cfg.Auth.TOTPIssuer, log)
	authService := auth.NewService(store, tokens, mfaService, detector, log, authOpts...)
	userService := user.NewService(store, userCache, broker, log)
	walletService := wallet.NewService(store, walletCache, broker, wallet.WalletConfig{
		FraudThreshold:    decimal.NewFromFloat(cfg.Wallet.FraudThreshold),
		MaxTransferAmount: decimal.NewFromFloat(cfg.Wallet.MaxTransferAmount),
		MaxDepositAmount:  decimal.NewFromFloat(cfg.Wallet.MaxDepositAmount),
	}, walletMetrics, log)
	fraudService := fraud.NewService(store)

	app := routes.NewApp(routes.AppOptions{
		Name:         cfg.App.Name,
		AllowOrigins: cfg.Server.AllowOrigins,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       log,
		AccessLog:    os.Stdout,
		Metrics:      httpMetrics,
	})
	routes.SetupRoutes(app, routes.Handlers{
		Auth:           handlers.NewAuthHandler(authService, cfg.IsProduction()),
		User:           handlers.NewUserHandler(userService),
		Wallet:         handlers.NewWalletHandler(walletService),
		Fraud:          handlers.NewFraudHandler(fraudService),
		MFA:            handlers.NewMFAHandler(mfaService),
		Events:         handlers.NewEventsHandler(broker, gauge, log),
		Health:         handlers.NewHealthHandler(checker, version),
		Metrics:        metricsHandler,
		AuthMiddleware: middleware.NewAuthMiddleware(tokens, authService, log),
		AuthRateLimit:  cfg.Server.AuthRateLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("server starting",
			slog.String("addr", addr),
			slog.String("env", cfg.App.Env),
			slog.String("storage", cfg.Storage.Driver),
			slog.String("realtime", cfg.Realtime.Driver),
			slog.String("version", version),
		)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	// Close the broker first so open event streams end and the server can drain.
	if err := broker.Close(); err != nil {
		log.Warn("failed to close realtime broker", slog.Any("error", err))
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newBroker(cfg *config.Config, db *gorm.DB, client *redis.Client, log *slog.Logger) (realtime.Broker, error) {
	switch cfg.Realtime.Driver {
	case "redis":
		if client == nil {
			return nil, errors.New("realtime driver redis requires redis.enabled")
		}
		return realtime.NewRedisBroker(client, cfg.Realtime.Channel, cfg.Realtime.SubscriberBuf, log), nil
	case "postgres":
		if db == nil {
			return nil, errors.New("realtime driver postgres requires storage driver postgres")
		}
		return realtime.NewPostgresBroker(db, cfg.Database.DSN(), cfg.Realtime.Channel, cfg.Realtime.SubscriberBuf, log)
	default:
		return realtime.NewHub(cfg.Realtime.SubscriberBuf), nil
	}
}

func closeDB(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to get database instance", slog.Any("error", err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database connection", slog.Any("error", err))
	}
}

// watchPoolStats logs database and Redis connection pool counters
// periodically. Either source may be nil.
func watchPoolStats(log *slog.Logger, every time.Duration, db *gorm.DB, redisPool *cache.CacheService) func() {
	var sqlDB *sql.DB
	if db != nil {
		if d, err := db.DB(); err == nil {
			sqlDB = d
		}
	}
	if sqlDB == nil && redisPool == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if sqlDB != nil {
					stats := sqlDB.Stats()
					log.Debug("db pool stats",
						slog.Int("open", stats.OpenConnections),
						slog.Int("idle", stats.Idle),
						slog.Int("in_use", stats.InUse),
						slog.Int64("wait_count", stats.WaitCount),
						slog.Duration("wait_duration", stats.WaitDuration),
					)
				}
				if redisPool != nil {
					stats := redisPool.Stats()
					log.Debug("redis pool stats",
						slog.Uint64("hits", uint64(stats.Hits)),
						slog.Uint64("misses", uint64(stats.Misses)),
						slog.Uint64("timeouts", uint64(stats.Timeouts)),
						slog.Uint64("total_conns", uint64(stats.TotalConns)),
						slog.Uint64("idle_conns", uint64(stats.IdleConns)),
					)
				}
			}
		}
	}()
	return func() { close(done) }
}
