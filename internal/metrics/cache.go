package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchangeflow",
		Subsystem: "enhancement_cache",
		Name:      "lookups_total",
		Help:      "Count of cache lookups by sub-cache and result.",
	}, []string{"cache", "result"})
)

// Cache tracks hit/miss counters for the enhancement cache.
type Cache struct{}

// NewCache constructs a metrics collector for the enhancement cache.
func NewCache() *Cache {
	return &Cache{}
}

// ObserveLookup records one lookup result ("hit" or "miss").
func (m Cache) ObserveLookup(cache, result string) {
	cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}
