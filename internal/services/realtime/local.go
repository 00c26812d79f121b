package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrBrokerClosed = errors.New("realtime: broker closed")

type subscriber struct {
	ch chan Event
}

// Hub is the in-process Broker. The Redis and Postgres brokers use one
// internally to fan out to local subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*subscriber]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{subs: make(map[uuid.UUID]map[*subscriber]struct{}), buffer: buffer}
}

func (h *Hub) Publish(_ context.Context, evt Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrBrokerClosed
	}
	for s := range h.subs[evt.UserID] {
		select {
		case s.ch <- evt:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Event, error) {
	s := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(userID, s)
	}()

	return s.ch, nil
}

func (h *Hub) remove(userID uuid.UUID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, userID)
	}
	close(s.ch)
}

// Subscribers reports the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for userID, set := range h.subs {
		for s := range set {
			close(s.ch)
		}
		delete(h.subs, userID)
	}
	return nil
}
