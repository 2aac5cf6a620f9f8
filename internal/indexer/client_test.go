package indexer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/config"
)

// fakeSource lets each capability be scripted per test.
type fakeSource struct {
	name           string
	chainHeightFn  func(ctx context.Context) (uint64, error)
	getBlockFn     func(ctx context.Context, height uint64) (*Block, error)
	getTxFn        func(ctx context.Context, txid string) (*Tx, error)
	getAddressTxFn func(ctx context.Context, addr string) ([]AddressTx, error)
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) ChainHeight(ctx context.Context) (uint64, error) {
	return f.chainHeightFn(ctx)
}

func (f *fakeSource) GetBlock(ctx context.Context, height uint64) (*Block, error) {
	return f.getBlockFn(ctx, height)
}

func (f *fakeSource) GetTransaction(ctx context.Context, txid string) (*Tx, error) {
	return f.getTxFn(ctx, txid)
}

func (f *fakeSource) GetAddressTransactions(ctx context.Context, addr string) ([]AddressTx, error) {
	return f.getAddressTxFn(ctx, addr)
}

func newTestClient(primary, fallback Source) *Client {
	localCfg := config.SourceConfig{URL: "http://local", BatchSize: 50, MaxConcurrent: 10}
	publicCfg := config.SourceConfig{URL: "http://public", BatchSize: 10, MaxConcurrent: 2, MinRequestDelayMS: 100}

	c := &Client{
		logger: zap.NewNop(),
		sleep: func(context.Context, time.Duration) error {
			return nil
		},
		sources: map[string]Source{
			config.SourceLocalIndexer:   primary,
			config.SourcePublicExplorer: fallback,
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
	c.activate(config.SourceLocalIndexer)
	return c
}

func TestClient_SwitchesSourceAfterExhaustedRetries(t *testing.T) {
	t.Parallel()

	primaryCalls := 0
	primary := &fakeSource{
		name: config.SourceLocalIndexer,
		chainHeightFn: func(context.Context) (uint64, error) {
			primaryCalls++
			return 0, errors.New("connection refused")
		},
	}
	fallback := &fakeSource{
		name: config.SourcePublicExplorer,
		chainHeightFn: func(context.Context) (uint64, error) {
			return 500, nil
		},
	}

	c := newTestClient(primary, fallback)

	height, err := c.ChainHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(500), height)
	assert.Equal(t, maxAttempts, primaryCalls)

	// The switch reloaded the conservative tuning.
	assert.Equal(t, config.SourcePublicExplorer, c.ActiveSource())
	assert.Equal(t, uint64(10), c.Settings().BatchSize)
}

func TestClient_SwitchIsOneShotPerCall(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) (uint64, error) {
		return 0, errors.New("down")
	}
	primary := &fakeSource{name: config.SourceLocalIndexer, chainHeightFn: failing}
	fallback := &fakeSource{name: config.SourcePublicExplorer, chainHeightFn: failing}

	c := newTestClient(primary, fallback)

	_, err := c.ChainHeight(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both sources")
	// It switched exactly once and stayed there.
	assert.Equal(t, config.SourcePublicExplorer, c.ActiveSource())
}

func TestClient_RateLimitDoublesDelayAndSuccessDecrements(t *testing.T) {
	t.Parallel()

	calls := 0
	primary := &fakeSource{
		name: config.SourceLocalIndexer,
		getTxFn: func(context.Context, string) (*Tx, error) {
			calls++
			if calls == 1 {
				return nil, &StatusError{Code: http.StatusTooManyRequests, URL: "u"}
			}
			return &Tx{TxID: "t1"}, nil
		},
	}
	fallback := &fakeSource{name: config.SourcePublicExplorer}

	c := newTestClient(primary, fallback)
	settings := config.SourceConfig{MinRequestDelayMS: 100}

	baseline := c.requestDelay(settings)
	assert.Equal(t, 100*time.Millisecond, baseline)

	tx, err := c.GetTransaction(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tx.TxID)

	// One 429 seen mid-call, then overall success: the counter went up by one
	// and back down to zero, saturating there.
	assert.Equal(t, 0, c.ConsecutiveErrors())
	c.recordSuccess()
	assert.Equal(t, 0, c.ConsecutiveErrors())

	c.recordError()
	assert.Equal(t, 200*time.Millisecond, c.requestDelay(settings))
	c.recordError()
	assert.Equal(t, 400*time.Millisecond, c.requestDelay(settings))
	c.recordSuccess()
	assert.Equal(t, 200*time.Millisecond, c.requestDelay(settings))
}

func TestClient_GetBlockDelegatesToActiveSource(t *testing.T) {
	t.Parallel()

	primary := &fakeSource{
		name: config.SourceLocalIndexer,
		getBlockFn: func(_ context.Context, height uint64) (*Block, error) {
			return &Block{Height: height, Hash: "h"}, nil
		},
	}
	c := newTestClient(primary, &fakeSource{name: config.SourcePublicExplorer})

	block, err := c.GetBlock(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), block.Height)
	assert.Equal(t, config.SourceLocalIndexer, c.ActiveSource())
}
