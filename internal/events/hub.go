package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Filter selects events for a subscription. Zero-valued fields match anything,
// except that events addressed to a user only reach subscriptions for that user.
type Filter struct {
	Stream     string
	BusinessID uuid.UUID
	UserID     uuid.UUID
	Types      []string
}

func (f Filter) matches(stream string, e Event) bool {
	if f.Stream != "" && f.Stream != stream {
		return false
	}
	if f.BusinessID != uuid.Nil && f.BusinessID != e.BusinessID {
		return false
	}
	if e.UserID != nil && *e.UserID != f.UserID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

// Subscription delivers matching events on C until Unsubscribe is called.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	id     uint64
	filter Filter
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.hub.remove(s.id) })
}

// Hub is an in-process broker. Delivery is at most once per subscription:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer, log: log}
}

func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, id: h.nextID, filter: filter, hub: h}
	h.subs[sub.id] = sub
	return sub
}

// SubscribeContext unsubscribes automatically once ctx is done.
func (h *Hub) SubscribeContext(ctx context.Context, filter Filter) *Subscription {
	sub := h.Subscribe(filter)
	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return sub
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish implements Publisher for single-instance deployments and tests.
func (h *Hub) Publish(_ context.Context, stream string, event Event) error {
	h.Dispatch(stream, event)
	return nil
}

// Dispatch fans an event out to matching subscriptions without blocking.
func (h *Hub) Dispatch(stream string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.matches(stream, event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.log.Warn("subscriber buffer full, dropping event",
				zap.String("stream", stream),
				zap.String("type", event.Type),
				zap.Uint64("subscription", sub.id),
			)
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Bridge feeds events received from sub on the given streams into the hub.
func (h *Hub) Bridge(ctx context.Context, sub Subscriber, streams ...string) error {
	for _, stream := range streams {
		stream := stream
		if err := sub.Subscribe(ctx, stream, func(e Event) { h.Dispatch(stream, e) }); err != nil {
			return err
		}
	}
	return nil
}
