package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classifierRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "classifier",
		Name:      "refresh_total",
		Help:      "Count of node registry refresh attempts.",
	}, []string{"status"})

	classifierRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exchangeflow",
		Subsystem: "classifier",
		Name:      "refresh_duration_seconds",
		Help:      "Duration of node registry refreshes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	classifierOperators = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "exchangeflow",
		Subsystem: "classifier",
		Name:      "node_operators",
		Help:      "Size of the current node operator snapshot.",
	})
)

// Classifier tracks metrics for registry refreshes.
type Classifier struct{}

// NewClassifier constructs a metrics collector for the classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// ObserveRefresh records one registry refresh attempt.
func (m Classifier) ObserveRefresh(err error, operators int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	classifierRefreshTotal.WithLabelValues(status).Inc()
	classifierRefreshDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	if err == nil {
		classifierOperators.Set(float64(operators))
	}
}
