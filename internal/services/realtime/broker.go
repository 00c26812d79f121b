// Package realtime delivers "something changed, refetch" hints to connected
// dashboards. Delivery is at-least-once and unordered; an Event never
// carries state, only which entity to re-read.
package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTransactionCreated = "transaction.created"
	EventFraudLogCreated    = "fraud_log.created"
	EventProfileUpdated     = "profile.updated"
)

type Event struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	EntityID uuid.UUID `json:"entity_id"`
	At       time.Time `json:"at"`
}

// Broker fans events out to the subscribers of Event.UserID.
type Broker interface {
	Publish(ctx context.Context, evt Event) error

	// Subscribe returns a channel of events for userID. The channel is
	// closed once ctx is done or the broker is closed. Slow readers miss
	// events instead of blocking publishers.
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan Event, error)

	Close() error
}

// NewEvent stamps an event with the current time.
func NewEvent(typ string, userID, entityID uuid.UUID) Event {
	return Event{Type: typ, UserID: userID, EntityID: entityID, At: time.Now().UTC()}
}
