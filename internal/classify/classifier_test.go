package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

func testBook() *AddressBook {
	return &AddressBook{
		Exchanges: []ExchangeEntry{
			{Address: "E1", Name: "Binance", Logo: "binance.png"},
		},
		Foundation: []FoundationEntry{
			{Address: "F1", Name: "Flux Foundation"},
		},
	}
}

func newTestClassifier(t *testing.T, registryURL string) *Classifier {
	t.Helper()
	return New(testBook(), registryURL, &http.Client{Timeout: time.Second}, nil, zap.NewNop())
}

func TestClassifier_EvaluationOrder(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, "http://unused")
	c.operators.Store(&operatorSnapshot{
		byAddress: map[string]model.NodeOperator{
			"N1": {PaymentAddress: "N1", NodeCount: 3, Tiers: model.TierCounts{Cumulus: 2, Stratus: 1}},
			// An address in both the exchange set and the registry must
			// classify as exchange.
			"E1": {PaymentAddress: "E1", NodeCount: 1},
		},
		fetchedAt: time.Now(),
	})

	exchange := c.Classify("E1")
	assert.Equal(t, model.AddressExchange, exchange.Type)
	assert.Equal(t, "Binance", exchange.Details["name"])
	assert.Equal(t, "binance.png", exchange.Details["logo"])

	foundation := c.Classify("F1")
	assert.Equal(t, model.AddressFoundation, foundation.Type)

	operator := c.Classify("N1")
	assert.Equal(t, model.AddressNodeOperator, operator.Type)
	assert.Equal(t, 3, operator.Details["node_count"])
	tiers, ok := operator.Details["tiers"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 2, tiers[model.TierCumulus])
	assert.Equal(t, 1, tiers[model.TierStratus])

	unknown := c.Classify("nobody")
	assert.Equal(t, model.AddressUnknown, unknown.Type)
	assert.Nil(t, unknown.Details)
}

func TestClassifier_RefreshNodeOperators(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"FluxNodes":[
			{"payment_address":"N1","tier":"CUMULUS","collateral":"1000"},
			{"payment_address":"N1","tier":"STRATUS","collateral":"40000"},
			{"payment_address":"N2","tier":"nimbus","collateral":"12500"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClassifier(t, srv.URL)
	require.NoError(t, c.RefreshNodeOperators(context.Background()))
	assert.Equal(t, 2, c.OperatorCount())

	op, ok := c.IsNodeOperator("N1")
	require.True(t, ok)
	assert.Equal(t, 2, op.NodeCount)
	assert.Equal(t, 1, op.Tiers.Cumulus)
	assert.Equal(t, 1, op.Tiers.Stratus)

	op, ok = c.IsNodeOperator("N2")
	require.True(t, ok)
	assert.Equal(t, 1, op.Tiers.Nimbus)

	assert.Less(t, c.SnapshotAge(), time.Minute)
}

func TestClassifier_RefreshFailOpen(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`[{"payment_address":"N1","tier":"CUMULUS"}]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClassifier(t, srv.URL)
	require.NoError(t, c.RefreshNodeOperators(context.Background()))
	require.Equal(t, 1, c.OperatorCount())

	// A failed refresh keeps the previous snapshot.
	err := c.RefreshNodeOperators(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, c.OperatorCount())
	_, ok := c.IsNodeOperator("N1")
	assert.True(t, ok)
}

func TestDecodeRegistry_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"upper wrapper", `{"FluxNodes":[{"payment_address":"A","tier":"CUMULUS"}]}`, 1},
		{"lower wrapper", `{"fluxNodes":[{"payment_address":"A","tier":"NIMBUS"},{"payment_address":"B","tier":"NIMBUS"}]}`, 2},
		{"bare array", `[{"payment_address":"A","tier":"STRATUS"}]`, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			records, err := decodeRegistry([]byte(tt.raw))
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}

	_, err := decodeRegistry([]byte(`{"other":"shape"}`))
	assert.Error(t, err)
}

func TestGroupByPaymentAddress_SkipsEmptyAddresses(t *testing.T) {
	t.Parallel()

	byAddress := groupByPaymentAddress([]registryRecord{
		{PaymentAddress: "", Tier: "CUMULUS"},
		{PaymentAddress: "A", Tier: "CUMULUS"},
	})
	assert.Len(t, byAddress, 1)
	assert.Equal(t, 1, byAddress["A"].NodeCount)
}

func TestClassifier_SnapshotAgeBeforeRefresh(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, "http://unused")
	assert.Greater(t, c.SnapshotAge(), time.Hour)
}
