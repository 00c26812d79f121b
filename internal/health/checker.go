// Package health reports whether the service's dependencies are reachable.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const StatusOK = "ok"

type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// Checker runs every registered check concurrently with a shared timeout.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration
	names   []string
	checks  map[string]Checkable
}

func NewChecker(log *slog.Logger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{log: log, timeout: timeout, checks: make(map[string]Checkable)}
}

func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	if _, exists := c.checks[name]; !exists {
		c.names = append(c.names, name)
		sort.Strings(c.names)
	}
	c.checks[name] = check
}

// Check returns "ok" or the error text per component, and whether every
// component is healthy.
func (c *Checker) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		results = make(map[string]string, len(c.checks))
	)
	for _, name := range c.names {
		wg.Add(1)
		go func(name string, check Checkable) {
			defer wg.Done()
			err := check.HealthCheck(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				results[name] = err.Error()
				if c.log != nil {
					c.log.ErrorContext(ctx, "health check failed", slog.String("component", name), slog.Any("error", err))
				}
				return
			}
			results[name] = StatusOK
		}(name, c.checks[name])
	}
	wg.Wait()

	return results, healthy
}

// DBChecker pings the database behind a gorm handle.
type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) *DBChecker {
	return &DBChecker{db: db}
}

func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type RedisChecker struct {
	pinger Pinger
}

func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}
