package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("create_claim", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveOperation("create_claim", OutcomeSuccess, 20*time.Millisecond)
	m.ObserveOperation("create_claim", OutcomeRejected, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationOutcome.WithLabelValues("create_claim", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationOutcome.WithLabelValues("create_claim", OutcomeRejected)))
}

func TestMetrics_ObserveLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLookup("involved_car", "found", time.Millisecond)
	m.ObserveLookup("involved_car", "not_found", time.Millisecond)
	m.IncrementViolation("not_found")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupOutcome.WithLabelValues("involved_car", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupOutcome.WithLabelValues("involved_car", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("not_found")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveOperation("update_status", OutcomeSuccess, time.Millisecond)
		m.ObserveLookup("agency", "found", time.Millisecond)
		m.IncrementViolation("invalid")
	})
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances on distinct registries must not collide.
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
