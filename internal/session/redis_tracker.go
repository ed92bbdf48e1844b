package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activityKeyPrefix = "session:activity:"
	endedKeyPrefix    = "session:ended:"
)

// RedisTracker keeps one key per session holding the last activity in unix
// milliseconds. Keys expire with the logout window; ended sessions leave a
// marker that outlives any token issued for them.
type RedisTracker struct {
	client   *redis.Client
	window   time.Duration
	endedTTL time.Duration
}

func NewRedisTracker(client *redis.Client, logoutAfter, tokenTTL time.Duration) *RedisTracker {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &RedisTracker{client: client, window: logoutAfter, endedTTL: tokenTTL}
}

func (t *RedisTracker) Touch(ctx context.Context, sessionID string, at time.Time) error {
	return t.client.Set(ctx, activityKeyPrefix+sessionID, at.UnixMilli(), t.window).Err()
}

func (t *RedisTracker) Last(ctx context.Context, sessionID string) (Activity, error) {
	pipe := t.client.Pipeline()
	last := pipe.Get(ctx, activityKeyPrefix+sessionID)
	ended := pipe.Exists(ctx, endedKeyPrefix+sessionID)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Activity{}, err
	}

	var a Activity
	a.Ended = ended.Val() > 0
	raw, err := last.Result()
	if errors.Is(err, redis.Nil) {
		return a, nil
	}
	if err != nil {
		return Activity{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Activity{}, err
	}
	a.At = time.UnixMilli(ms).UTC()
	a.Seen = true
	return a, nil
}

func (t *RedisTracker) End(ctx context.Context, sessionID string) error {
	pipe := t.client.TxPipeline()
	pipe.Del(ctx, activityKeyPrefix+sessionID)
	pipe.Set(ctx, endedKeyPrefix+sessionID, 1, t.endedTTL)
	_, err := pipe.Exec(ctx)
	return err
}
