package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBroker publishes on one channel per user so every API instance
// receives the events of the users connected to it.
type RedisBroker struct {
	client *redis.Client
	prefix string
	buffer int
	logger *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewRedisBroker(client *redis.Client, prefix string, buffer int, logger *slog.Logger) *RedisBroker {
	if buffer <= 0 {
		buffer = 1
	}
	return &RedisBroker{client: client, prefix: prefix, buffer: buffer, logger: logger, done: make(chan struct{})}
}

func (b *RedisBroker) channel(userID uuid.UUID) string {
	return fmt.Sprintf("%s:events:%s", b.prefix, userID)
}

func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(evt.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Event, error) {
	select {
	case <-b.done:
		return nil, ErrBrokerClosed
	default:
	}

	ps := b.client.Subscribe(ctx, b.channel(userID))
	// wait for the subscription to be confirmed so no event published
	// after Subscribe returns is lost
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event, b.buffer)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.logger.Warn("dropping malformed realtime event", slog.String("channel", msg.Channel), slog.Any("error", err))
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()

	return out, nil
}

// Close ends every open subscription. The Redis client is owned by the
// caller and stays open.
func (b *RedisBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}
