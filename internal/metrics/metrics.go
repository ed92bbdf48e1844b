package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision outcomes
const (
	OutcomeOK           = "ok"
	OutcomeInvalidState = "invalid_state"
	OutcomeConflict     = "conflict"
	OutcomeApplyFailed  = "apply_failed"
	OutcomeRejected     = "rejected_input"
	OutcomeError        = "error"
)

// Metrics tracks the approval workflow and its best-effort side effects.
type Metrics struct {
	Submissions          *prometheus.CounterVec
	Decisions            *prometheus.CounterVec
	DecideDuration       prometheus.Histogram
	NotificationsCreated prometheus.Counter
	NotificationFailures *prometheus.CounterVec
	NotificationRetries  *prometheus.CounterVec
	AuditFailures        prometheus.Counter
	SessionsExpired      prometheus.Counter
}

// New registers all metrics on reg. Pass prometheus.DefaultRegisterer in binaries.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "laundry_pending_updates_submitted_total",
			Help: "Pending updates submitted for review, by table",
		}, []string{"table"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "laundry_pending_update_decisions_total",
			Help: "Admin decisions on pending updates, by decision and outcome",
		}, []string{"decision", "outcome"}),
		DecideDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "laundry_decide_duration_seconds",
			Help:    "Duration of the transactional part of a decision",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		NotificationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "laundry_notifications_created_total",
			Help: "Notifications persisted",
		}),
		NotificationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "laundry_notification_failures_total",
			Help: "Notification operations that failed, by stage",
		}, []string{"stage"}),
		NotificationRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "laundry_notification_retries_total",
			Help: "Queued notification redeliveries, by outcome",
		}, []string{"outcome"}),
		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "laundry_activity_log_failures_total",
			Help: "Activity log writes that failed or were refused",
		}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "laundry_sessions_expired_total",
			Help: "Sessions ended for inactivity",
		}),
	}
}

// NewNop returns metrics bound to a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) ObserveDecision(decision, outcome string, start time.Time) {
	m.Decisions.WithLabelValues(decision, outcome).Inc()
	m.DecideDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncSubmission(table string) {
	m.Submissions.WithLabelValues(table).Inc()
}

func (m *Metrics) IncNotificationFailure(stage string) {
	m.NotificationFailures.WithLabelValues(stage).Inc()
}
