// Package session ends login sessions after a period without activity.
// A session warns before it expires; any tracked request resets the clock.
package session

import (
	"context"
	"time"

	"github.com/laundry-desk/backend/internal/metrics"
	"go.uber.org/zap"
)

// Session states
const (
	StatusActive  = "active"
	StatusWarning = "warning"
	StatusExpired = "expired"
)

// Activity is what a tracker knows about one session.
type Activity struct {
	At    time.Time
	Seen  bool
	Ended bool
}

// Tracker stores the last activity per session id.
type Tracker interface {
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Last(ctx context.Context, sessionID string) (Activity, error)
	End(ctx context.Context, sessionID string) error
}

type State struct {
	Status       string        `json:"status"`
	LastActivity time.Time     `json:"last_activity"`
	Idle         time.Duration `json:"-"`
	Remaining    time.Duration `json:"-"`
}

func (s State) Expired() bool { return s.Status == StatusExpired }

type Monitor struct {
	tracker     Tracker
	warnAfter   time.Duration
	logoutAfter time.Duration
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

func NewMonitor(tracker Tracker, warnAfter, logoutAfter time.Duration, m *metrics.Metrics, log *zap.Logger) *Monitor {
	if logoutAfter <= 0 {
		logoutAfter = 4 * time.Minute
	}
	if warnAfter <= 0 || warnAfter >= logoutAfter {
		warnAfter = logoutAfter / 2
	}
	return &Monitor{
		tracker:     tracker,
		warnAfter:   warnAfter,
		logoutAfter: logoutAfter,
		metrics:     m,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Monitor) WarnAfter() time.Duration   { return m.warnAfter }
func (m *Monitor) LogoutAfter() time.Duration { return m.logoutAfter }

// Check reports the session state without counting as activity. A session
// with no recorded activity is measured from issuedAt.
func (m *Monitor) Check(ctx context.Context, sessionID string, issuedAt time.Time) (State, error) {
	a, err := m.tracker.Last(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if a.Ended {
		return State{Status: StatusExpired, LastActivity: a.At}, nil
	}
	last := a.At
	if !a.Seen {
		last = issuedAt
		if last.IsZero() {
			last = m.now()
		}
	}
	return m.evaluate(last), nil
}

func (m *Monitor) evaluate(last time.Time) State {
	idle := m.now().Sub(last)
	if idle < 0 {
		idle = 0
	}
	st := State{LastActivity: last, Idle: idle, Remaining: m.logoutAfter - idle}
	switch {
	case idle >= m.logoutAfter:
		st.Status = StatusExpired
		st.Remaining = 0
	case idle >= m.warnAfter:
		st.Status = StatusWarning
	default:
		st.Status = StatusActive
	}
	return st
}

// Touch records activity. An already expired session is ended instead and
// stays expired.
func (m *Monitor) Touch(ctx context.Context, sessionID string, issuedAt time.Time) (State, error) {
	st, err := m.Check(ctx, sessionID, issuedAt)
	if err != nil {
		return State{}, err
	}
	if st.Expired() {
		if err := m.expire(ctx, sessionID); err != nil {
			return State{}, err
		}
		return st, nil
	}

	now := m.now()
	if err := m.tracker.Touch(ctx, sessionID, now); err != nil {
		return State{}, err
	}
	return m.evaluate(now), nil
}

// End terminates the session, as on logout.
func (m *Monitor) End(ctx context.Context, sessionID string) error {
	return m.tracker.End(ctx, sessionID)
}

func (m *Monitor) expire(ctx context.Context, sessionID string) error {
	a, err := m.tracker.Last(ctx, sessionID)
	if err != nil {
		return err
	}
	if a.Ended {
		return nil
	}
	m.metrics.SessionsExpired.Inc()
	m.log.Info("session expired for inactivity", zap.String("session_id", sessionID))
	return m.tracker.End(ctx, sessionID)
}
