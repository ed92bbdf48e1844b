package memory

import (
	"context"
	"sync"
	"time"

	"github.com/laundry-desk/backend/internal/repositories"
)

// RetryQueue is a FIFO stand-in for the Redis notification retry list.
type RetryQueue struct {
	mu    sync.Mutex
	items []repositories.RetryItem

	// FailEnqueue, when set, makes every enqueue fail with its error.
	FailEnqueue error
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{}
}

func (q *RetryQueue) Enqueue(_ context.Context, item repositories.RetryItem) error {
	if q.FailEnqueue != nil {
		return q.FailEnqueue
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *RetryQueue) Dequeue(_ context.Context, max int) ([]repositories.RetryItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max > len(q.items) {
		max = len(q.items)
	}
	out := append([]repositories.RetryItem(nil), q.items[:max]...)
	q.items = q.items[max:]
	return out, nil
}

func (q *RetryQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
