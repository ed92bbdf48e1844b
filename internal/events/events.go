package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Streams
const (
	StreamNotifications  = "events:notifications"
	StreamPendingUpdates = "events:pending_updates"
)

// Event types
const (
	EventNotificationCreated    = "notification_created"
	EventNotificationRead       = "notification_read"
	EventPendingUpdateSubmitted = "pending_update_submitted"
	EventPendingUpdateDecided   = "pending_update_decided"
)

// Event is scoped to a business and, when UserID is set, to a single recipient.
type Event struct {
	Type       string          `json:"type"`
	BusinessID uuid.UUID       `json:"business_id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	At         time.Time       `json:"at"`
}

func New(eventType string, businessID uuid.UUID, userID *uuid.UUID, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:       eventType,
		BusinessID: businessID,
		UserID:     userID,
		Payload:    raw,
		At:         time.Now().UTC(),
	}, nil
}

func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
