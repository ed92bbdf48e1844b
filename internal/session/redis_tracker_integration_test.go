//go:build integration

package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/laundry-desk/backend/internal/testutil/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisTrackerRoundTrip(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	tracker := NewRedisTracker(rc.Client, 4*time.Minute, time.Hour)
	id := uuid.NewString()

	a, err := tracker.Last(ctx, id)
	require.NoError(t, err)
	assert.False(t, a.Seen)
	assert.False(t, a.Ended)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.Touch(ctx, id, at))
	a, err = tracker.Last(ctx, id)
	require.NoError(t, err)
	assert.True(t, a.Seen)
	assert.True(t, at.Equal(a.At))

	ttl, err := rc.Client.TTL(ctx, activityKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 4*time.Minute)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, tracker.End(ctx, id))
	a, err = tracker.Last(ctx, id)
	require.NoError(t, err)
	assert.True(t, a.Ended)
	assert.False(t, a.Seen)
}

func TestMonitorOverRedisExpiresEndedSession(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	mon := NewMonitor(NewRedisTracker(rc.Client, 4*time.Minute, time.Hour), 2*time.Minute, 4*time.Minute, metrics.NewNop(), zap.NewNop())
	id := uuid.NewString()
	issued := time.Now().UTC()

	st, err := mon.Touch(ctx, id, issued)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, st.Status)

	require.NoError(t, mon.End(ctx, id))
	st, err = mon.Check(ctx, id, issued)
	require.NoError(t, err)
	assert.True(t, st.Expired())
}
