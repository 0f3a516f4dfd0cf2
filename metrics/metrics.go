/*
metrics.go - Prometheus instrumentation for the claim engine

PURPOSE:
  Counts claim operations by outcome, times them, and records how reference
  lookups resolve. Every method is safe on a nil *Metrics so callers never
  need to guard.

REGISTRATION:
  New registers against the given Registerer. The server passes
  prometheus.DefaultRegisterer; tests pass a fresh registry so repeated
  construction never collides.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for OperationOutcome.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics provides observability for claim operations.
type Metrics struct {
	// Operation results by operation name and outcome
	OperationOutcome *prometheus.CounterVec

	// Operation latency by operation name
	OperationLatency *prometheus.HistogramVec

	// Reference lookups by entity kind and resolution
	LookupOutcome *prometheus.CounterVec

	// Reference lookup latency by entity kind
	LookupLatency *prometheus.HistogramVec

	// Violations reported to callers, by kind
	Violations *prometheus.CounterVec
}

// New creates a Metrics instance with all claim metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_operations_total",
			Help: "Total claim operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claims_operation_duration_seconds",
			Help:    "Duration of claim operations including validation and persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		LookupOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_reference_lookups_total",
			Help: "Reference lookups by entity kind and resolution",
		}, []string{"kind", "resolution"}), // resolution: "found", "not_found", "already_linked"

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claims_reference_lookup_duration_seconds",
			Help:    "Duration of a single reference existence lookup",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"kind"}),

		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_violations_total",
			Help: "Violations returned to callers by kind",
		}, []string{"kind"}),
	}
}

// ObserveOperation records the outcome and duration of one claim operation.
func (m *Metrics) ObserveOperation(operation, outcome string, d time.Duration) {
	if m != nil {
		m.OperationOutcome.WithLabelValues(operation, outcome).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveLookup records one reference lookup.
func (m *Metrics) ObserveLookup(kind, resolution string, d time.Duration) {
	if m != nil {
		m.LookupOutcome.WithLabelValues(kind, resolution).Inc()
		m.LookupLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// IncrementViolation counts one reported violation.
func (m *Metrics) IncrementViolation(kind string) {
	if m != nil {
		m.Violations.WithLabelValues(kind).Inc()
	}
}
