package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/config"
)

func newExplorerTestSource(t *testing.T, handler http.Handler, fetchLimit int) (*ExplorerSource, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.SourceConfig{
		URL:                   srv.URL,
		TransactionFetchLimit: fetchLimit,
		RequestTimeoutSeconds: 5,
	}
	return NewExplorerSource("local_indexer", cfg, zap.NewNop()), srv
}

func TestExplorerSource_ChainHeightProbing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body map[string]string
		want uint64
	}{
		{"flat height", map[string]string{"/api/v1/blocks/latest": `{"height": 12345}`}, 12345},
		{"nested under data", map[string]string{"/api/v1/blocks/latest": `{"data":{"height": 777}}`}, 777},
		{"status fallback", map[string]string{
			"/api/v1/blocks/latest": `{"unexpected":true}`,
			"/api/v1/status":        `{"sync":{"blockHeight": 900}}`,
		}, 900},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, _ := newExplorerTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, ok := tt.body[r.URL.Path]
				if !ok {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				_, _ = w.Write([]byte(body))
			}), 0)

			height, err := src.ChainHeight(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, height)
		})
	}
}

func TestExplorerSource_GetBlock_TransferFilter(t *testing.T) {
	t.Parallel()

	var fetched []string
	src, _ := newExplorerTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/blocks/500":
			_, _ = w.Write([]byte(`{
				"height": 500, "hash": "abc", "time": 1700000000, "size": 2048,
				"tx": ["cb1", "t1", "nc1"],
				"txDetails": [
					{"txid": "cb1", "kind": "coinbase"},
					{"txid": "t1", "kind": "transfer"},
					{"txid": "nc1", "kind": "node_confirmation"}
				]
			}`))
		case "/api/v1/transactions/t1":
			fetched = append(fetched, "t1")
			_, _ = w.Write([]byte(`{
				"txid": "t1", "kind": "transfer",
				"vin": [{"addresses": ["A"]}],
				"vout": [{"n": 0, "value": 1000000000, "scriptPubKey": {"addresses": ["B"]}}]
			}`))
		default:
			t.Errorf("unexpected fetch %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}), 0)

	block, err := src.GetBlock(context.Background(), 500)
	require.NoError(t, err)

	assert.Equal(t, uint64(500), block.Height)
	assert.Equal(t, "abc", block.Hash)
	require.Len(t, block.Txs, 1, "only transfer kinds get full fetches")
	assert.Equal(t, []string{"t1"}, fetched)

	tx := block.Txs[0]
	require.Len(t, tx.Vout, 1)
	// scriptPubKey.addresses lifted to the output level.
	assert.Equal(t, []string{"B"}, tx.Vout[0].Addresses)
	assert.Equal(t, uint64(1000000000), tx.Vout[0].ValueSat)
}

func TestExplorerSource_GetBlock_FetchCap(t *testing.T) {
	t.Parallel()

	src, _ := newExplorerTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/blocks/7" {
			_, _ = w.Write([]byte(`{
				"height": 7,
				"tx": ["t1","t2","t3"],
				"txDetails": [
					{"txid":"t1","kind":"transfer"},
					{"txid":"t2","kind":"transfer"},
					{"txid":"t3","kind":"transfer"}
				]
			}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"txid": %q, "vin": [], "vout": []}`, r.URL.Path[len("/api/v1/transactions/"):])
	}), 2)

	block, err := src.GetBlock(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, block.Txs, 2)
}

func TestExplorerSource_GetAddressTransactions(t *testing.T) {
	t.Parallel()

	src, _ := newExplorerTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/addresses/U/transactions", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"txid":"a","blockHeight":10,"timestamp":100,"direction":"received","isCoinbase":true},
			{"txid":"b","blockHeight":20,"timestamp":200,"direction":"sent","isCoinbase":false}
		]`))
	}), 0)

	txs, err := src.GetAddressTransactions(context.Background(), "U")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, DirectionReceived, txs[0].Direction)
	assert.True(t, txs[0].IsCoinbase)
	assert.Equal(t, DirectionSent, txs[1].Direction)
}

func TestExplorerSource_RateLimitedStatus(t *testing.T) {
	t.Parallel()

	src, _ := newExplorerTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}), 0)

	_, err := src.GetTransaction(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}
