// Package enhance upgrades unknown flow event sides by tracing wallets to
// node operators through the transaction graph.
package enhance

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// Sub-cache TTLs. Short relative to an enhancement run; negative results are
// cached with the same TTL so shared subgraphs are not re-walked.
const (
	walletTxTTL   = 5 * time.Minute
	coinbaseTTL   = 60 * time.Minute
	connectionTTL = 60 * time.Minute
	operatorTTL   = 5 * time.Minute
	txBodyTTL     = 10 * time.Minute
)

// CacheMetrics records per-sub-cache lookup outcomes.
type CacheMetrics interface {
	ObserveLookup(cache, result string)
}

type cacheEntry[V any] struct {
	value     V
	expiresAt int64
}

// ttlCache is one memoization map with lazy expiry.
type ttlCache[K comparable, V any] struct {
	name    string
	ttl     time.Duration
	m       *xsync.Map[K, cacheEntry[V]]
	metrics CacheMetrics

	hits   atomic.Int64
	misses atomic.Int64
	saves  atomic.Int64
}

func newTTLCache[K comparable, V any](name string, ttl time.Duration, metrics CacheMetrics) *ttlCache[K, V] {
	return &ttlCache[K, V]{
		name:    name,
		ttl:     ttl,
		m:       xsync.NewMap[K, cacheEntry[V]](),
		metrics: metrics,
	}
}

// Get returns a live entry; expired entries are evicted on access.
func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	var zero V
	entry, ok := c.m.Load(key)
	if ok && time.Now().UnixNano() >= entry.expiresAt {
		c.m.Delete(key)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.ObserveLookup(c.name, "miss")
		}
		return zero, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.ObserveLookup(c.name, "hit")
	}
	return entry.value, true
}

// Set stores a value with the cache's TTL.
func (c *ttlCache[K, V]) Set(key K, value V) {
	c.saves.Add(1)
	c.m.Store(key, cacheEntry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl).UnixNano(),
	})
}

// ClearExpired removes every expired entry.
func (c *ttlCache[K, V]) ClearExpired() {
	now := time.Now().UnixNano()
	c.m.Range(func(key K, entry cacheEntry[V]) bool {
		if now >= entry.expiresAt {
			c.m.Delete(key)
		}
		return true
	})
}

// SubCacheStats summarizes one sub-cache.
type SubCacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Saves   int64 `json:"saves"`
	Entries int   `json:"entries"`
}

func (c *ttlCache[K, V]) Stats() SubCacheStats {
	return SubCacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Saves:   c.saves.Load(),
		Entries: c.m.Size(),
	}
}

// Cache keys for the structured sub-caches.
type coinbaseKey struct {
	Addr      string
	FromBlock uint64
	ToBlock   uint64
}

type connectionKey struct {
	Addr      string
	Direction indexer.Direction
	FromBlock uint64
}

// operatorEntry caches both positive and negative operator lookups.
type operatorEntry struct {
	Operator model.NodeOperator
	Found    bool
}

// Cache is the process-local memoization layer for one enhancement run and,
// up to TTL, across runs. It is not a coherence mechanism: momentarily stale
// negative entries are tolerated.
type Cache struct {
	walletTxs   *ttlCache[string, []indexer.AddressTx]
	coinbase    *ttlCache[coinbaseKey, coinbaseResult]
	connections *ttlCache[connectionKey, connectionResult]
	operators   *ttlCache[string, operatorEntry]
	txBodies    *ttlCache[string, *indexer.Tx]
}

// NewCache builds the five sub-caches.
func NewCache(metrics CacheMetrics) *Cache {
	return &Cache{
		walletTxs:   newTTLCache[string, []indexer.AddressTx]("wallet_transactions", walletTxTTL, metrics),
		coinbase:    newTTLCache[coinbaseKey, coinbaseResult]("coinbase", coinbaseTTL, metrics),
		connections: newTTLCache[connectionKey, connectionResult]("historical_connection", connectionTTL, metrics),
		operators:   newTTLCache[string, operatorEntry]("operator_status", operatorTTL, metrics),
		txBodies:    newTTLCache[string, *indexer.Tx]("transaction_body", txBodyTTL, metrics),
	}
}

// ClearExpired sweeps all sub-caches; called opportunistically at end-of-run.
func (c *Cache) ClearExpired() {
	c.walletTxs.ClearExpired()
	c.coinbase.ClearExpired()
	c.connections.ClearExpired()
	c.operators.ClearExpired()
	c.txBodies.ClearExpired()
}

// Stats reports all sub-cache counters.
func (c *Cache) Stats() map[string]SubCacheStats {
	return map[string]SubCacheStats{
		"wallet_transactions":   c.walletTxs.Stats(),
		"coinbase":              c.coinbase.Stats(),
		"historical_connection": c.connections.Stats(),
		"operator_status":       c.operators.Stats(),
		"transaction_body":      c.txBodies.Stats(),
	}
}
