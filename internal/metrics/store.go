// Package metrics exposes Prometheus collectors for every subsystem.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Count of storage operations.",
	}, []string{"operation", "status"})

	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exchangeflow",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of storage operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// Store tracks metrics for the SQLite store.
type Store struct{}

// NewStore constructs a metrics collector for the store.
func NewStore() *Store {
	return &Store{}
}

// Observe records a single storage operation outcome and duration.
func (m Store) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	storeOperationsTotal.WithLabelValues(operation, status).Inc()
	storeOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
