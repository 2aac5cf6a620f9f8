package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enhancementRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "enhancement",
		Name:      "runs_total",
		Help:      "Count of enhancement runs.",
	}, []string{"status"})

	enhancementRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exchangeflow",
		Subsystem: "enhancement",
		Name:      "run_duration_seconds",
		Help:      "Duration of enhancement runs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"status"})

	enhancementEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "enhancement",
		Name:      "events_total",
		Help:      "Count of analyzed flow events by outcome.",
	}, []string{"outcome"})

	enhancementHopsResolved = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "exchangeflow",
		Subsystem: "enhancement",
		Name:      "hops_resolved",
		Help:      "Classification level of successful enhancements.",
		Buckets:   []float64{0, 1, 2, 3, 4},
	})

	enhancementCircularTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "enhancement",
		Name:      "circular_detections_total",
		Help:      "Count of suppressed circular BFS paths.",
	})
)

// Enhancement tracks metrics for the wallet enhancement engine.
type Enhancement struct{}

// NewEnhancement constructs a metrics collector for the engine.
func NewEnhancement() *Enhancement {
	return &Enhancement{}
}

// ObserveRun records one enhancement run.
func (m Enhancement) ObserveRun(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	enhancementRunsTotal.WithLabelValues(status).Inc()
	enhancementRunDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// ObserveEvent records one analyzed event outcome: enhanced, miss, or error.
func (m Enhancement) ObserveEvent(outcome string) {
	enhancementEventsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHit records the level of one successful enhancement.
func (m Enhancement) ObserveHit(level int) {
	enhancementHopsResolved.Observe(float64(level))
}

// ObserveCircular counts one suppressed circular path.
func (m Enhancement) ObserveCircular() {
	enhancementCircularTotal.Inc()
}
