package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecision(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDecision("approve", OutcomeOK, time.Now())
	m.ObserveDecision("approve", OutcomeInvalidState, time.Now())
	m.ObserveDecision("approve", OutcomeOK, time.Now())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Decisions.WithLabelValues("approve", OutcomeOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Decisions.WithLabelValues("approve", OutcomeInvalidState)))
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}
