package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostgresBroker publishes with pg_notify and receives through a single
// LISTEN connection, fanning notifications out to local subscribers.
type PostgresBroker struct {
	db       *gorm.DB
	channel  string
	listener *pq.Listener
	hub      *Hub
	logger   *slog.Logger
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func NewPostgresBroker(db *gorm.DB, dsn, channel string, buffer int, logger *slog.Logger) (*PostgresBroker, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("postgres listener event", slog.Int("event", int(ev)), slog.Any("error", err))
		}
	})
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}

	b := &PostgresBroker{
		db:       db,
		channel:  channel,
		listener: listener,
		hub:      NewHub(buffer),
		logger:   logger,
		done:     make(chan struct{}),
	}
	go b.run()
	return b, nil
}

func (b *PostgresBroker) run() {
	for {
		select {
		case <-b.done:
			return
		case n, ok := <-b.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; anything sent meanwhile is lost, which
			// consumers tolerate because they refetch on the next hint
			if n == nil {
				continue
			}
			var evt Event
			if err := json.Unmarshal([]byte(n.Extra), &evt); err != nil {
				b.logger.Warn("dropping malformed notification", slog.Any("error", err))
				continue
			}
			_ = b.hub.Publish(context.Background(), evt)
		case <-time.After(90 * time.Second):
			go func() { _ = b.listener.Ping() }()
		}
	}
}

func (b *PostgresBroker) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", b.channel, string(payload)).Error; err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (b *PostgresBroker) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Event, error) {
	return b.hub.Subscribe(ctx, userID)
}

func (b *PostgresBroker) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
		b.closeErr = b.listener.Close()
		_ = b.hub.Close()
	})
	return b.closeErr
}
