package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "pipeline",
		Name:      "ticks_total",
		Help:      "Count of ingestion ticks.",
	}, []string{"status"})

	pipelineTickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exchangeflow",
		Subsystem: "pipeline",
		Name:      "tick_duration_seconds",
		Help:      "Duration of ingestion ticks.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"status"})

	pipelineBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "exchangeflow",
		Subsystem: "pipeline",
		Name:      "batch_size_blocks",
		Help:      "Number of blocks processed per batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	pipelineFlowEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "pipeline",
		Name:      "flow_events_total",
		Help:      "Count of flow events committed.",
	})

	pipelineConsecutiveErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "exchangeflow",
		Subsystem: "pipeline",
		Name:      "consecutive_errors",
		Help:      "Current consecutive block fetch error count.",
	})

	pipelineBlocksPerMinute = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "exchangeflow",
		Subsystem: "pipeline",
		Name:      "blocks_per_minute",
		Help:      "Recent ingestion throughput.",
	})
)

// Pipeline tracks metrics for the block ingestion pipeline.
type Pipeline struct{}

// NewPipeline constructs a metrics collector for the pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// ObserveTick records one ingestion tick.
func (m Pipeline) ObserveTick(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pipelineTicksTotal.WithLabelValues(status).Inc()
	pipelineTickDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// ObserveBatch records one committed batch.
func (m Pipeline) ObserveBatch(blocks, flowEvents int) {
	pipelineBatchSize.Observe(float64(blocks))
	pipelineFlowEventsTotal.Add(float64(flowEvents))
}

// SetConsecutiveErrors publishes the current error streak.
func (m Pipeline) SetConsecutiveErrors(n int) {
	pipelineConsecutiveErrors.Set(float64(n))
}

// SetBlocksPerMinute publishes the current throughput estimate.
func (m Pipeline) SetBlocksPerMinute(v float64) {
	pipelineBlocksPerMinute.Set(v)
}
