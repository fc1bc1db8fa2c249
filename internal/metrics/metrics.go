package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels that are not reason codes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// Metrics provides observability for lending operations.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Handoffs   prometheus.Counter
}

// New creates the lending metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "library_lending_operations_total",
			Help: "Lending operations by operation and outcome (ok, reason code, failed or error)",
		}, []string{"operation", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "library_lending_operation_duration_seconds",
			Help:    "Duration of lending operations including the storage transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		Handoffs: factory.NewCounter(prometheus.CounterOpts{
			Name: "library_handoffs_total",
			Help: "Returned books automatically loaned to the next queued member",
		}),
	}
}

// ObserveOperation records one operation outcome and its duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementHandoffs() {
	m.Handoffs.Inc()
}
