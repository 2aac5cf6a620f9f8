package enhance

import (
	"context"
	"fmt"

	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// connectionScanLimit caps how many recent wallet transactions the historical
// connection check inspects.
const connectionScanLimit = 20

// coinbaseResult is the cached outcome of one coinbase window check.
type coinbaseResult struct {
	Found     bool
	LastBlock uint64
	Count     int
}

// connectionResult is the cached outcome of one historical connection scan.
type connectionResult struct {
	Found           bool
	NodeWallet      string
	ConnectionTxID  string
	ConnectionBlock uint64
	Method          string
	CoinbaseCount   int
}

// walletTransactions fetches a wallet history through the cache.
func (e *Engine) walletTransactions(ctx context.Context, addr string) ([]indexer.AddressTx, error) {
	if txs, ok := e.cache.walletTxs.Get(addr); ok {
		return txs, nil
	}
	txs, err := e.chain.GetAddressTransactions(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("wallet transactions for %s: %w", addr, err)
	}
	e.cache.walletTxs.Set(addr, txs)
	return txs, nil
}

// transactionBody fetches a full transaction through the cache.
func (e *Engine) transactionBody(ctx context.Context, txid string) (*indexer.Tx, error) {
	if tx, ok := e.cache.txBodies.Get(txid); ok {
		return tx, nil
	}
	tx, err := e.chain.GetTransaction(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("transaction body %s: %w", txid, err)
	}
	e.cache.txBodies.Set(txid, tx)
	return tx, nil
}

// operatorStatus looks up current operator membership through the cache.
// Negative results are cached too.
func (e *Engine) operatorStatus(addr string) (model.NodeOperator, bool) {
	if entry, ok := e.cache.operators.Get(addr); ok {
		return entry.Operator, entry.Found
	}
	op, found := e.classifier.IsNodeOperator(addr)
	e.cache.operators.Set(addr, operatorEntry{Operator: op, Found: found})
	return op, found
}

// coinbaseCheck reports whether the wallet received any block reward inside
// [fromBlock, toBlock].
func (e *Engine) coinbaseCheck(ctx context.Context, wallet string, fromBlock, toBlock uint64) (coinbaseResult, error) {
	key := coinbaseKey{Addr: wallet, FromBlock: fromBlock, ToBlock: toBlock}
	if res, ok := e.cache.coinbase.Get(key); ok {
		return res, nil
	}

	txs, err := e.walletTransactions(ctx, wallet)
	if err != nil {
		return coinbaseResult{}, err
	}

	res := coinbaseResult{}
	for _, tx := range txs {
		if !tx.IsCoinbase || tx.Direction != indexer.DirectionReceived {
			continue
		}
		if tx.BlockHeight < fromBlock || tx.BlockHeight > toBlock {
			continue
		}
		res.Found = true
		res.Count++
		if tx.BlockHeight > res.LastBlock {
			res.LastBlock = tx.BlockHeight
		}
	}

	e.cache.coinbase.Set(key, res)
	return res, nil
}

// historicalConnection scans the wallet's most recent in-window transactions
// on the event side's direction for a counterparty that is, now or
// historically, a node operator. Counterparties are deduplicated per call and
// the scan short-circuits on the first hit.
func (e *Engine) historicalConnection(ctx context.Context, wallet string, dir indexer.Direction, eventBlock uint64) (connectionResult, error) {
	window := e.cfg.HistoricalDetection.TimeWindowBlocks
	fromBlock := uint64(0)
	if eventBlock > window {
		fromBlock = eventBlock - window
	}

	key := connectionKey{Addr: wallet, Direction: dir, FromBlock: fromBlock}
	if res, ok := e.cache.connections.Get(key); ok {
		return res, nil
	}

	txs, err := e.walletTransactions(ctx, wallet)
	if err != nil {
		return connectionResult{}, err
	}

	// Most recent first, capped.
	candidates := make([]indexer.AddressTx, 0, connectionScanLimit)
	for i := len(txs) - 1; i >= 0 && len(candidates) < connectionScanLimit; i-- {
		tx := txs[i]
		if tx.Direction != dir || tx.IsCoinbase {
			continue
		}
		if tx.BlockHeight < fromBlock || tx.BlockHeight > eventBlock {
			continue
		}
		candidates = append(candidates, tx)
	}

	res := connectionResult{}
	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		body, err := e.transactionBody(ctx, candidate.TxID)
		if err != nil {
			e.logger.Debug("skip connection candidate with unfetchable body")
			continue
		}
		counterparty := counterpartyAddress(body, wallet, dir)
		if counterparty == "" {
			continue
		}
		if _, dup := seen[counterparty]; dup {
			continue
		}
		seen[counterparty] = struct{}{}

		if _, found := e.operatorStatus(counterparty); found {
			res = connectionResult{
				Found:           true,
				NodeWallet:      counterparty,
				ConnectionTxID:  candidate.TxID,
				ConnectionBlock: candidate.BlockHeight,
				Method:          methodHistoricalConnection,
			}
			break
		}

		cb, err := e.coinbaseCheck(ctx, counterparty, fromBlock, eventBlock)
		if err != nil {
			continue
		}
		if cb.Found {
			res = connectionResult{
				Found:           true,
				NodeWallet:      counterparty,
				ConnectionTxID:  candidate.TxID,
				ConnectionBlock: candidate.BlockHeight,
				Method:          methodHistoricalConnection,
				CoinbaseCount:   cb.Count,
			}
			break
		}
	}

	e.cache.connections.Set(key, res)
	return res, nil
}

// counterpartyAddress extracts the other party of a transaction relative to
// wallet: the first output address that is not the wallet for outbound
// transfers, the first input address that is not the wallet for inbound ones.
func counterpartyAddress(tx *indexer.Tx, wallet string, dir indexer.Direction) string {
	if dir == indexer.DirectionSent {
		for _, vout := range tx.Vout {
			for _, addr := range vout.Addresses {
				if addr != wallet {
					return addr
				}
			}
		}
		return ""
	}
	for _, vin := range tx.Vin {
		for _, addr := range vin.Addresses {
			if addr != wallet {
				return addr
			}
		}
	}
	return ""
}

// blocksToDays converts a block delta to whole days using the chain's block
// time.
func (e *Engine) blocksToDays(blocks uint64) int {
	if e.blockTimeSeconds <= 0 {
		return 0
	}
	return int(blocks * uint64(e.blockTimeSeconds) / 86400)
}
