package session

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker is the in-process Tracker used by tests and single-node runs.
type MemoryTracker struct {
	mu    sync.Mutex
	last  map[string]time.Time
	ended map[string]bool
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{last: make(map[string]time.Time), ended: make(map[string]bool)}
}

func (t *MemoryTracker) Touch(_ context.Context, sessionID string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[sessionID] = at
	return nil
}

func (t *MemoryTracker) Last(_ context.Context, sessionID string) (Activity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, seen := t.last[sessionID]
	return Activity{At: at, Seen: seen, Ended: t.ended[sessionID]}, nil
}

func (t *MemoryTracker) End(_ context.Context, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, sessionID)
	t.ended[sessionID] = true
	return nil
}
