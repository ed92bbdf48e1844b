package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/laundry-desk/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultRetryQueueKey = "queue:notifications:retry"

// RetryItem is a notification whose creation failed and should be attempted again.
type RetryItem struct {
	Notification models.Notification `json:"notification"`
	Attempts     int                 `json:"attempts"`
	LastError    string              `json:"last_error,omitempty"`
	EnqueuedAt   time.Time           `json:"enqueued_at"`
}

// NotificationRetryQueue is a FIFO list in Redis: LPUSH to enqueue, RPOP to drain.
type NotificationRetryQueue struct {
	client *redis.Client
	key    string
}

func NewNotificationRetryQueue(client *redis.Client, key string) *NotificationRetryQueue {
	if key == "" {
		key = defaultRetryQueueKey
	}
	return &NotificationRetryQueue{client: client, key: key}
}

func (q *NotificationRetryQueue) Enqueue(ctx context.Context, item RetryItem) error {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Dequeue pops up to max items, oldest first.
func (q *NotificationRetryQueue) Dequeue(ctx context.Context, max int) ([]RetryItem, error) {
	if max <= 0 {
		return nil, nil
	}
	raw, err := q.client.RPopCount(ctx, q.key, max).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]RetryItem, 0, len(raw))
	for _, r := range raw {
		var item RetryItem
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			// A corrupt entry would otherwise block the queue forever.
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (q *NotificationRetryQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
