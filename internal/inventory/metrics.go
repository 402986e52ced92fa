package inventory

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yurtlab/pjinventory/internal/equipment"
)

// Metrics counts inventory operations by outcome. A nil *Metrics records
// nothing.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// Operation outcomes used as the result label.
const (
	resultOK          = "ok"
	resultInvalid     = "invalid"
	resultReferential = "referential"
	resultRejected    = "rejected"
	resultError       = "error"
)

// NewMetrics registers the inventory collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pjinventory",
			Name:      "operations_total",
			Help:      "Inventory operations by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pjinventory",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in inventory transactions and report reads.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 6),
		}, []string{"op"}),
	}
	m.registry.MustRegister(m.operations, m.duration)
	return m
}

// Gatherer returns the registry holding the inventory collectors, for
// pushing to a Pushgateway or serving on /metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) observe(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result(err)).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, equipment.ErrInvalid):
		return resultInvalid
	case errors.Is(err, ErrReferential):
		return resultReferential
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrProjectorExists),
		errors.Is(err, ErrBulbExists),
		errors.Is(err, ErrPoweredOff):
		return resultRejected
	default:
		return resultError
	}
}
