package indexer

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/config"
)

// PublicSource talks to the public explorer (/api/v2). It is the conservative
// source: block bodies arrive with transactions embedded, and the caller is
// expected to pace requests.
type PublicSource struct {
	name       string
	baseURL    string
	httpClient *http.Client
	fetchLimit int
	logger     *zap.Logger
}

// NewPublicSource builds the fallback source from its tuning block.
func NewPublicSource(name string, cfg config.SourceConfig, logger *zap.Logger) *PublicSource {
	return &PublicSource{
		name:       name,
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		fetchLimit: cfg.TransactionFetchLimit,
		logger:     logger.Named("public_source"),
	}
}

// Name identifies the source in logs and metrics.
func (s *PublicSource) Name() string { return s.name }

// ChainHeight probes /api/v2/status for the tip height.
func (s *PublicSource) ChainHeight(ctx context.Context) (uint64, error) {
	raw := map[string]any{}
	if err := getJSON(ctx, s.httpClient, s.baseURL+"/api/v2/status", &raw); err != nil {
		return 0, err
	}
	if h, ok := probeHeight(raw); ok {
		return h, nil
	}
	return 0, fmt.Errorf("chain height not found in status response")
}

type publicBlock struct {
	Height uint64     `json:"height"`
	Hash   string     `json:"hash"`
	Time   int64      `json:"time"`
	Size   uint32     `json:"size"`
	Txs    []publicTx `json:"txs"`
}

type publicTx struct {
	TxID string          `json:"txid"`
	Vin  []publicVin     `json:"vin"`
	Vout []rawScriptVout `json:"vout"`
}

type publicVin struct {
	Addresses  []string `json:"addresses"`
	IsCoinbase bool     `json:"isCoinbase"`
	Coinbase   string   `json:"coinbase"`
}

// GetBlock fetches a block with embedded transactions. Coinbase transactions
// are dropped during normalization; there is no inline kind summary on this
// source.
func (s *PublicSource) GetBlock(ctx context.Context, height uint64) (*Block, error) {
	var raw publicBlock
	url := fmt.Sprintf("%s/api/v2/block/%d", s.baseURL, height)
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

	count := 0
	for _, entry := range raw.Txs {
		if s.fetchLimit > 0 && count >= s.fetchLimit {
			s.logger.Debug("transaction cap applied",
				zap.Uint64("height", height), zap.Int("limit", s.fetchLimit))
			break
		}
		tx, err := entry.normalize()
		if err != nil {
			s.logger.Warn("skip malformed transaction",
				zap.String("txid", entry.TxID), zap.Error(err))
			continue
		}
		if tx.Kind == TxKindCoinbase {
			continue
		}
		block.Txs = append(block.Txs, *tx)
		count++
	}
	return block, nil
}

// GetTransaction fetches one full transaction body.
func (s *PublicSource) GetTransaction(ctx context.Context, txid string) (*Tx, error) {
	var raw publicTx
	url := fmt.Sprintf("%s/api/v2/tx/%s", s.baseURL, txid)
	if err := getJSON(ctx, s.httpClient, url, &raw); err != nil {
		return nil, err
	}
	tx, err := raw.normalize()
	if err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		tx.TxID = txid
	}
	return tx, nil
}

// GetAddressTransactions returns the wallet history, deriving direction from
// whether the wallet appears on the input or output side.
func (s *PublicSource) GetAddressTransactions(ctx context.Context, addr string) ([]AddressTx, error) {
	var raw struct {
		Address      string `json:"address"`
		Transactions []struct {
			TxID        string          `json:"txid"`
			BlockHeight uint64          `json:"blockHeight"`
			BlockTime   int64           `json:"blockTime"`
			Vin         []publicVin     `json:"vin"`
			Vout        []rawScriptVout `json:"vout"`
		} `json:"transactions"`
	}
	url := fmt.Sprintf("%s/api/v2/address/%s?details=txs", s.baseURL, addr)
	if err := getJSON(ctx, s.httpClient, url, &raw); err != nil {
		return nil, err
	}

	txs := make([]AddressTx, 0, len(raw.Transactions))
	for _, entry := range raw.Transactions {
		atx := AddressTx{
			TxID:        entry.TxID,
			BlockHeight: entry.BlockHeight,
			Timestamp:   entry.BlockTime,
			Direction:   DirectionReceived,
		}
		for _, vin := range entry.Vin {
			if vin.IsCoinbase || vin.Coinbase != "" {
				atx.IsCoinbase = true
			}
			for _, a := range vin.Addresses {
				if a == addr {
					atx.Direction = DirectionSent
				}
			}
		}
		txs = append(txs, atx)
	}
	return txs, nil
}

// normalize converts a wire transaction to the shared shape.
func (t publicTx) normalize() (*Tx, error) {
	tx := &Tx{TxID: t.TxID, Kind: TxKindTransfer}
	for _, vin := range t.Vin {
		in := Vin{Addresses: vin.Addresses, Coinbase: vin.IsCoinbase || vin.Coinbase != ""}
		if in.Coinbase {
			tx.Kind = TxKindCoinbase
		}
		tx.Vin = append(tx.Vin, in)
	}
	for _, vout := range t.Vout {
		out, err := vout.normalize()
		if err != nil {
			return nil, fmt.Errorf("tx %s: %w", t.TxID, err)
		}
		tx.Vout = append(tx.Vout, out)
	}
	return tx, nil
}
