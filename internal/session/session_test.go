package session

import (
	"context"
	"testing"
	"time"

	"github.com/laundry-desk/backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMonitor() (*Monitor, *clock, *metrics.Metrics) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := metrics.NewNop()
	mon := NewMonitor(NewMemoryTracker(), 2*time.Minute, 4*time.Minute, m, zap.NewNop())
	mon.now = c.now
	return mon, c, m
}

func TestMonitorStates(t *testing.T) {
	ctx := context.Background()
	mon, c, _ := newTestMonitor()
	issued := c.t

	cases := []struct {
		after  time.Duration
		status string
	}{
		{0, StatusActive},
		{119 * time.Second, StatusActive},
		{2 * time.Minute, StatusWarning},
		{239 * time.Second, StatusWarning},
		{4 * time.Minute, StatusExpired},
	}
	for _, tc := range cases {
		c.t = issued.Add(tc.after)
		st, err := mon.Check(ctx, "s1", issued)
		require.NoError(t, err)
		assert.Equal(t, tc.status, st.Status, "after %s", tc.after)
	}
}

func TestTouchResetsIdleClock(t *testing.T) {
	ctx := context.Background()
	mon, c, _ := newTestMonitor()
	issued := c.t

	c.advance(3 * time.Minute)
	st, err := mon.Touch(ctx, "s1", issued)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, st.Status)
	assert.Equal(t, 4*time.Minute, st.Remaining)

	c.advance(150 * time.Second)
	st, err = mon.Check(ctx, "s1", issued)
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, st.Status)
	assert.Equal(t, 90*time.Second, st.Remaining)
}

func TestExpiredSessionStaysExpired(t *testing.T) {
	ctx := context.Background()
	mon, c, m := newTestMonitor()
	issued := c.t

	c.advance(5 * time.Minute)
	st, err := mon.Touch(ctx, "s1", issued)
	require.NoError(t, err)
	assert.True(t, st.Expired())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsExpired))

	// Activity after expiry does not revive the session.
	st, err = mon.Touch(ctx, "s1", c.t)
	require.NoError(t, err)
	assert.True(t, st.Expired())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsExpired))
}

func TestEndLogsOut(t *testing.T) {
	ctx := context.Background()
	mon, c, _ := newTestMonitor()

	_, err := mon.Touch(ctx, "s1", c.t)
	require.NoError(t, err)
	require.NoError(t, mon.End(ctx, "s1"))

	st, err := mon.Check(ctx, "s1", c.t)
	require.NoError(t, err)
	assert.True(t, st.Expired())
}

func TestNewMonitorRepairsWindow(t *testing.T) {
	mon := NewMonitor(NewMemoryTracker(), 10*time.Minute, 4*time.Minute, metrics.NewNop(), zap.NewNop())
	assert.Equal(t, 2*time.Minute, mon.WarnAfter())
	assert.Equal(t, 4*time.Minute, mon.LogoutAfter())
}
