package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/krazyTry/flipflop-go/shared"
)

// Metrics records operation outcomes. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	warnings   *prometheus.CounterVec
	batches    *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipflop_operations_total",
				Help: "Operations finished, by terminal state and error kind",
			},
			[]string{"operation", "state", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flipflop_operation_duration_seconds",
				Help:    "Operation duration from validation to a terminal state",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipflop_operation_warnings_total",
				Help: "Non-fatal warnings attached to successful operations",
			},
			[]string{"operation", "kind"},
		),
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipflop_batches_submitted_total",
				Help: "Batches handed to the ledger, by batch kind and outcome",
			},
			[]string{"operation", "batch", "status"},
		),
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration, m.warnings, m.batches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(operation string, state shared.State, kind shared.ErrorKind, started time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, state.String(), string(kind)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) warn(operation string, kind shared.ErrorKind) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(operation, string(kind)).Inc()
}

func (m *Metrics) batch(operation, batch string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = string(shared.KindOf(err))
	}
	m.batches.WithLabelValues(operation, batch, status).Inc()
}
