package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration API.
// Tracks write outcomes and per-operation latency. A nil *Metrics is a no-op.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	RegistrationsDeleted prometheus.Counter
	Conflicts            prometheus.Counter
	ValidationFailures   *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
	ListCacheLookups     *prometheus.CounterVec
}

// New creates a Metrics instance with every collector registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "registry_registrations_created_total",
			Help: "Total number of person registrations created",
		}),
		RegistrationsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "registry_registrations_deleted_total",
			Help: "Total number of person registrations deleted",
		}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "registry_conflicts_total",
			Help: "Writes rejected because the CPF or email was already registered",
		}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_validation_failures_total",
			Help: "Submissions rejected by validation, by field",
		}, []string{"field"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registry_operation_duration_seconds",
			Help:    "Duration of service operations by outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "outcome"}),
		ListCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_list_cache_lookups_total",
			Help: "List cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

// IncrementCreated records a successful registration.
func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.RegistrationsCreated.Inc()
}

// IncrementDeleted records a removed registration.
func (m *Metrics) IncrementDeleted() {
	if m == nil {
		return
	}
	m.RegistrationsDeleted.Inc()
}

// IncrementConflict records a uniqueness violation.
func (m *Metrics) IncrementConflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

// IncrementValidationFailure records a rejected submission for field.
func (m *Metrics) IncrementValidationFailure(field string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(field).Inc()
}

// ObserveOperation records how long op took and how it ended.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveOperation(op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

// IncrementCacheLookup records a list cache lookup result.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m == nil {
		return
	}
	m.ListCacheLookups.WithLabelValues(result).Inc()
}
