package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/clock"
	"github.com/fluxsignal/exchange-flow-backend/internal/config"
)

const (
	// maxAttempts per source before a failover is considered.
	maxAttempts = 3
	// maxRequestDelay caps the 429-driven delay growth.
	maxRequestDelay = time.Minute
)

type (
	// Metrics records upstream call outcomes per source.
	Metrics interface {
		Observe(operation, source string, err error, started time.Time)
	}
)

// Client hides the primary/fallback split behind the Source capability set.
// Per-source tuning is loaded when the active source changes and applied to
// every subsequent fetch; a switch happens at most once per call so the
// client cannot ping-pong mid-request.
type Client struct {
	logger  *zap.Logger
	metrics Metrics
	sleep   func(context.Context, time.Duration) error

	sources  map[string]Source
	tuning   map[string]config.SourceConfig
	failover map[string]string

	mu       sync.RWMutex
	active   string
	settings config.SourceConfig
	limiter  ratelimit.Limiter

	errMu             sync.Mutex
	consecutiveErrors int
}

// NewClient wires both sources and activates the configured one.
func NewClient(
	cfg *config.Config,
	metrics Metrics,
	logger *zap.Logger,
) (*Client, error) {
	logger = logger.Named("indexer")

	localCfg, err := cfg.SourceSettingsFor(config.SourceLocalIndexer)
	if err != nil {
		return nil, err
	}
	publicCfg, err := cfg.SourceSettingsFor(config.SourcePublicExplorer)
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger:  logger,
		metrics: metrics,
		sleep:   clock.SleepWithContext,
		sources: map[string]Source{
			config.SourceLocalIndexer:   NewExplorerSource(config.SourceLocalIndexer, localCfg, logger),
			config.SourcePublicExplorer: NewPublicSource(config.SourcePublicExplorer, publicCfg, logger),
		},
		tuning: map[string]config.SourceConfig{
			config.SourceLocalIndexer:   localCfg,
			config.SourcePublicExplorer: publicCfg,
		},
		failover: map[string]string{
			config.SourceLocalIndexer:   config.SourcePublicExplorer,
			config.SourcePublicExplorer: config.SourceLocalIndexer,
		},
	}

	if _, ok := c.sources[cfg.ActiveDataSource]; !ok {
		return nil, fmt.Errorf("unknown active data source %q", cfg.ActiveDataSource)
	}
	c.activate(cfg.ActiveDataSource)
	return c, nil
}

// activate installs a source and its tuning atomically. Callers must not
// observe torn settings mid-call, so everything changes under one lock.
func (c *Client) activate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = name
	c.settings = c.tuning[name]
	if c.settings.EnableRateLimiting && c.settings.MinRequestDelayMS > 0 {
		rps := int(time.Second / c.settings.MinRequestDelay())
		if rps < 1 {
			rps = 1
		}
		c.limiter = ratelimit.New(rps)
	} else {
		c.limiter = nil
	}
}

// ActiveSource returns the name of the source currently in use.
func (c *Client) ActiveSource() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Settings returns the tuning block of the active source.
func (c *Client) Settings() config.SourceConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// ConsecutiveErrors exposes the saturating error counter.
func (c *Client) ConsecutiveErrors() int {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.consecutiveErrors
}

func (c *Client) snapshot() (Source, config.SourceConfig, ratelimit.Limiter) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sources[c.active], c.settings, c.limiter
}

// switchSource flips to the other source and reloads its settings.
func (c *Client) switchSource(reason error) {
	c.mu.RLock()
	current := c.active
	c.mu.RUnlock()

	next := c.failover[current]
	c.logger.Warn("switching data source",
		zap.String("from", current),
		zap.String("to", next),
		zap.Error(reason),
	)
	c.activate(next)
}

// recordError bumps the saturating counter; a 429 also counts, which doubles
// the effective per-request delay for subsequent calls.
func (c *Client) recordError() {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.consecutiveErrors++
}

// recordSuccess decrements the counter, saturating at zero.
func (c *Client) recordSuccess() {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.consecutiveErrors > 0 {
		c.consecutiveErrors--
	}
}

// requestDelay derives the current pacing delay: the configured minimum,
// doubled once per consecutive error, capped.
func (c *Client) requestDelay(settings config.SourceConfig) time.Duration {
	base := settings.MinRequestDelay()
	if base <= 0 {
		return 0
	}
	c.errMu.Lock()
	errs := c.consecutiveErrors
	c.errMu.Unlock()
	return clock.BackoffDelay(base, errs, maxRequestDelay)
}

// do runs one upstream operation: pacing, bounded retries with exponential
// backoff, then a one-shot source switch on exhaustion.
func (c *Client) do(ctx context.Context, op string, call func(context.Context, Source) error) error {
	switched := false
	for {
		src, settings, limiter := c.snapshot()

		if limiter != nil {
			limiter.Take()
		}
		if delay := c.requestDelay(settings); delay > 0 {
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := c.attempt(ctx, op, src, call)
		if err == nil {
			c.recordSuccess()
			return nil
		}
		c.recordError()

		if ctx.Err() != nil {
			return err
		}
		if switched {
			return fmt.Errorf("%s failed on both sources: %w", op, err)
		}
		switched = true
		c.switchSource(err)
	}
}

// attempt retries one call against one source with exponential backoff.
func (c *Client) attempt(ctx context.Context, op string, src Source, call func(context.Context, Source) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	attempts := 0
	operation := func() error {
		started := time.Now()
		err := call(ctx, src)
		if c.metrics != nil {
			c.metrics.Observe(op, src.Name(), err, started)
		}
		attempts++
		if err != nil && IsRateLimited(err) {
			// Rate limiting also feeds the delay doubling.
			c.recordError()
		}
		if err != nil && attempts >= maxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))
	if err != nil {
		c.logger.Debug("upstream call exhausted retries",
			zap.String("operation", op),
			zap.String("source", src.Name()),
			zap.Error(err),
		)
	}
	return err
}

// ChainHeight returns the current chain tip.
func (c *Client) ChainHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.do(ctx, "chain_height", func(ctx context.Context, src Source) error {
		h, err := src.ChainHeight(ctx)
		if err != nil {
			return err
		}
		height = h
		return nil
	})
	return height, err
}

// GetBlock returns a normalized block.
func (c *Client) GetBlock(ctx context.Context, height uint64) (*Block, error) {
	var block *Block
	err := c.do(ctx, "get_block", func(ctx context.Context, src Source) error {
		b, err := src.GetBlock(ctx, height)
		if err != nil {
			return err
		}
		block = b
		return nil
	})
	return block, err
}

// GetTransaction returns a normalized transaction body.
func (c *Client) GetTransaction(ctx context.Context, txid string) (*Tx, error) {
	var tx *Tx
	err := c.do(ctx, "get_transaction", func(ctx context.Context, src Source) error {
		t, err := src.GetTransaction(ctx, txid)
		if err != nil {
			return err
		}
		tx = t
		return nil
	})
	return tx, err
}

// GetAddressTransactions returns a wallet's chronological history.
func (c *Client) GetAddressTransactions(ctx context.Context, addr string) ([]AddressTx, error) {
	var txs []AddressTx
	err := c.do(ctx, "get_address_transactions", func(ctx context.Context, src Source) error {
		list, err := src.GetAddressTransactions(ctx, addr)
		if err != nil {
			return err
		}
		txs = list
		return nil
	})
	return txs, err
}
