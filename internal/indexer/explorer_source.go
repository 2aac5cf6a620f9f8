package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/config"
	"github.com/fluxsignal/exchange-flow-backend/pkg/safe"
)

// ExplorerSource talks to the private local indexer (/api/v1). It is the
// aggressive source: inline transaction kind summaries let it skip full
// fetches for coinbase and node-confirmation transactions.
type ExplorerSource struct {
	name       string
	baseURL    string
	httpClient *http.Client
	fetchLimit int
	logger     *zap.Logger
}

// NewExplorerSource builds the primary source from its tuning block.
func NewExplorerSource(name string, cfg config.SourceConfig, logger *zap.Logger) *ExplorerSource {
	return &ExplorerSource{
		name:       name,
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		fetchLimit: cfg.TransactionFetchLimit,
		logger:     logger.Named("explorer_source"),
	}
}

// Name identifies the source in logs and metrics.
func (s *ExplorerSource) Name() string { return s.name }

// ChainHeight probes /api/v1/blocks/latest, then /api/v1/status, accepting
// the height wherever the deployment nests it.
func (s *ExplorerSource) ChainHeight(ctx context.Context) (uint64, error) {
	for _, path := range []string{"/api/v1/blocks/latest", "/api/v1/status"} {
		raw := map[string]any{}
		if err := getJSON(ctx, s.httpClient, s.baseURL+path, &raw); err != nil {
			if IsRateLimited(err) {
				return 0, err
			}
			s.logger.Debug("height probe failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if h, ok := probeHeight(raw); ok {
			return h, nil
		}
	}
	return 0, fmt.Errorf("chain height not found in any known response shape")
}

type explorerBlock struct {
	Height    uint64            `json:"height"`
	Hash      string            `json:"hash"`
	Time      int64             `json:"time"`
	Size      uint32            `json:"size"`
	Tx        []string          `json:"tx"`
	TxDetails []explorerTxBrief `json:"txDetails"`
}

type explorerTxBrief struct {
	TxID string `json:"txid"`
	Kind string `json:"kind"`
}

// GetBlock fetches the block header plus full bodies for its transfer
// transactions. Coinbase and node-confirmation transactions are dropped
// before any full fetch.
func (s *ExplorerSource) GetBlock(ctx context.Context, height uint64) (*Block, error) {
	var raw explorerBlock
	url := fmt.Sprintf("%s/api/v1/blocks/%d", s.baseURL, height)
	if err := getJSON(ctx, s.httpClient, url, &raw); err != nil {
		return nil, err
	}

	block := &Block{
		Height: raw.Height,
		Hash:   raw.Hash,
		Time:   raw.Time,
		Size:   raw.Size,
	}
	if block.Height == 0 {
		block.Height = height
	}

	txids := transferTxIDs(raw)
	if s.fetchLimit > 0 && len(txids) > s.fetchLimit {
		s.logger.Debug("transaction fetch cap applied",
			zap.Uint64("height", height),
			zap.Int("total", len(txids)),
			zap.Int("limit", s.fetchLimit),
		)
		txids = txids[:s.fetchLimit]
	}

	for _, txid := range txids {
		tx, err := s.GetTransaction(ctx, txid)
		if err != nil {
			// A missing body is a data-shape problem for one record, not a
			// reason to drop the block.
			s.logger.Warn("skip transaction with unfetchable body",
				zap.String("txid", txid), zap.Error(err))
			continue
		}
		block.Txs = append(block.Txs, *tx)
	}
	return block, nil
}

// transferTxIDs selects the txids worth a full fetch. When the summary list
// is present only kind=transfer survives; without it every txid is fetched.
func transferTxIDs(raw explorerBlock) []string {
	if len(raw.TxDetails) == 0 {
		return raw.Tx
	}
	txids := make([]string, 0, len(raw.TxDetails))
	for _, brief := range raw.TxDetails {
		if TxKind(brief.Kind) == TxKindTransfer {
			txids = append(txids, brief.TxID)
		}
	}
	return txids
}

type explorerTx struct {
	TxID string          `json:"txid"`
	Kind string          `json:"kind"`
	Vin  []explorerVin   `json:"vin"`
	Vout []rawScriptVout `json:"vout"`
}

type explorerVin struct {
	Addresses []string `json:"addresses"`
	Addr      string   `json:"addr"`
	Coinbase  string   `json:"coinbase"`
}

// GetTransaction fetches one full transaction body.
func (s *ExplorerSource) GetTransaction(ctx context.Context, txid string) (*Tx, error) {
	var raw explorerTx
	url := fmt.Sprintf("%s/api/v1/transactions/%s", s.baseURL, txid)
	if err := getJSON(ctx, s.httpClient, url, &raw); err != nil {
		return nil, err
	}

	tx := &Tx{TxID: raw.TxID, Kind: TxKind(raw.Kind)}
	if tx.TxID == "" {
		tx.TxID = txid
	}
	for _, vin := range raw.Vin {
		in := Vin{Addresses: vin.Addresses, Coinbase: vin.Coinbase != ""}
		if len(in.Addresses) == 0 && vin.Addr != "" {
			in.Addresses = []string{vin.Addr}
		}
		tx.Vin = append(tx.Vin, in)
	}
	for _, vout := range raw.Vout {
		out, err := vout.normalize()
		if err != nil {
			return nil, fmt.Errorf("tx %s: %w", txid, err)
		}
		tx.Vout = append(tx.Vout, out)
	}
	return tx, nil
}

type explorerAddressTx struct {
	TxID        string `json:"txid"`
	BlockHeight uint64 `json:"blockHeight"`
	Timestamp   int64  `json:"timestamp"`
	Direction   string `json:"direction"`
	IsCoinbase  bool   `json:"isCoinbase"`
}

// GetAddressTransactions returns the chronological wallet history.
func (s *ExplorerSource) GetAddressTransactions(ctx context.Context, addr string) ([]AddressTx, error) {
	var raw []explorerAddressTx
	url := fmt.Sprintf("%s/api/v1/addresses/%s/transactions", s.baseURL, addr)
	if err := getJSON(ctx, s.httpClient, url, &raw); err != nil {
		return nil, err
	}

	txs := make([]AddressTx, 0, len(raw))
	for _, entry := range raw {
		txs = append(txs, AddressTx{
			TxID:        entry.TxID,
			BlockHeight: entry.BlockHeight,
			Timestamp:   entry.Timestamp,
			Direction:   Direction(entry.Direction),
			IsCoinbase:  entry.IsCoinbase,
		})
	}
	return txs, nil
}

// rawScriptVout is the wire shape shared by both sources: value in satoshis,
// addresses nested under scriptPubKey or flattened.
type rawScriptVout struct {
	N            uint32          `json:"n"`
	Value        json.Number     `json:"value"`
	Addresses    []string        `json:"addresses"`
	ScriptPubKey rawScriptPubKey `json:"scriptPubKey"`
}

type rawScriptPubKey struct {
	Addresses []string `json:"addresses"`
}

// normalize lifts scriptPubKey.addresses to the output level and parses the
// satoshi value.
func (v rawScriptVout) normalize() (Vout, error) {
	out := Vout{N: v.N, Addresses: v.Addresses}
	if len(out.Addresses) == 0 {
		out.Addresses = v.ScriptPubKey.Addresses
	}
	if v.Value != "" {
		raw, err := v.Value.Int64()
		if err != nil {
			return Vout{}, fmt.Errorf("output %d has invalid value %q", v.N, v.Value)
		}
		sat, err := safe.Uint64(raw)
		if err != nil {
			return Vout{}, fmt.Errorf("output %d value: %w", v.N, err)
		}
		out.ValueSat = sat
	}
	return out, nil
}
