package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "indexer_client",
		Name:      "operations_total",
		Help:      "Count of upstream indexer operations.",
	}, []string{"operation", "source", "status"})

	indexerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exchangeflow",
		Subsystem: "indexer_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of upstream indexer operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "source", "status"})
)

// IndexerClient tracks metrics for upstream data source calls.
type IndexerClient struct{}

// NewIndexerClient constructs a metrics collector for upstream calls.
func NewIndexerClient() *IndexerClient {
	return &IndexerClient{}
}

// Observe records a single upstream call outcome and duration.
func (m IndexerClient) Observe(operation, source string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	indexerRequestsTotal.WithLabelValues(operation, source, status).Inc()
	indexerRequestDuration.WithLabelValues(operation, source, status).Observe(time.Since(started).Seconds())
}
