package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/config"
)

func newPublicTestSource(t *testing.T, handler http.Handler) *PublicSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.SourceConfig{URL: srv.URL, RequestTimeoutSeconds: 5}
	return NewPublicSource("public_explorer", cfg, zap.NewNop())
}

func TestPublicSource_GetBlock_DropsCoinbase(t *testing.T) {
	t.Parallel()

	src := newPublicTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/block/42", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"height": 42, "hash": "h42", "time": 1700000000,
			"txs": [
				{"txid":"cb","vin":[{"coinbase":"03abc"}],"vout":[{"n":0,"value":500000000,"addresses":["M"]}]},
				{"txid":"t1","vin":[{"addresses":["A"]}],"vout":[{"n":0,"value":250000000,"scriptPubKey":{"addresses":["B"]}}]}
			]
		}`))
	}))

	block, err := src.GetBlock(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, block.Txs, 1)
	assert.Equal(t, "t1", block.Txs[0].TxID)
	assert.Equal(t, []string{"B"}, block.Txs[0].Vout[0].Addresses)
}

func TestPublicSource_GetAddressTransactions_Direction(t *testing.T) {
	t.Parallel()

	src := newPublicTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/address/U", r.URL.Path)
		require.Equal(t, "txs", r.URL.Query().Get("details"))
		_, _ = w.Write([]byte(`{
			"address": "U",
			"transactions": [
				{"txid":"in","blockHeight":10,"blockTime":100,"vin":[{"addresses":["X"]}],"vout":[{"n":0,"addresses":["U"]}]},
				{"txid":"out","blockHeight":20,"blockTime":200,"vin":[{"addresses":["U"]}],"vout":[{"n":0,"addresses":["Y"]}]},
				{"txid":"reward","blockHeight":30,"blockTime":300,"vin":[{"isCoinbase":true}],"vout":[{"n":0,"addresses":["U"]}]}
			]
		}`))
	}))

	txs, err := src.GetAddressTransactions(context.Background(), "U")
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, DirectionReceived, txs[0].Direction)
	assert.Equal(t, DirectionSent, txs[1].Direction)
	assert.True(t, txs[2].IsCoinbase)
	assert.Equal(t, DirectionReceived, txs[2].Direction)
}

func TestPublicSource_ChainHeight(t *testing.T) {
	t.Parallel()

	src := newPublicTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"backend":{"blocks": 54321}}`))
	}))

	height, err := src.ChainHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(54321), height)
}

func TestProbeHeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   map[string]any
		want  uint64
		found bool
	}{
		{"top level height", map[string]any{"height": float64(10)}, 10, true},
		{"top level blocks", map[string]any{"blocks": float64(20)}, 20, true},
		{"nested data", map[string]any{"data": map[string]any{"blockHeight": float64(30)}}, 30, true},
		{"string height", map[string]any{"height": "40"}, 40, true},
		{"absent", map[string]any{"foo": "bar"}, 0, false},
		{"negative rejected", map[string]any{"height": float64(-1)}, 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := probeHeight(tt.raw)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
