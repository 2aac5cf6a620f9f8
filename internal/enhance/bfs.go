package enhance

import (
	"context"

	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// hop is one queue entry of the multi-hop search. chain holds the wallets
// walked so far starting at the event's unknown wallet; anchor block/time is
// where the connecting transaction landed, so each expansion keeps moving in
// the traversal direction.
type hop struct {
	wallet      string
	depth       int
	chain       []string
	txids       []string
	anchorBlock uint64
	anchorTime  int64
}

// bfsHit is a successful multi-hop resolution.
type bfsHit struct {
	Level      int
	NodeWallet string
	Chain      []string
	TxIDs      []string
	Method     string
	Status     string

	Operator    model.NodeOperator
	HasOperator bool
	Coinbase    coinbaseResult
}

// multiHop runs the bounded breadth-first search. For buys it follows money
// forward out of the unknown wallet; for sells it follows money backward into
// it. A wallet is never expanded twice within one traversal, branching per
// wallet is bounded, and the search ends when the queue empties or a hit is
// found.
func (e *Engine) multiHop(ctx context.Context, wallet string, dir indexer.Direction, eventBlock uint64, eventTime int64) (*bfsHit, error) {
	maxHops := e.cfg.MaxHops
	maxBranches := e.cfg.MultiHop.MaxBranchesPerWallet
	window := e.cfg.MultiHop.TimeWindowBlocks

	visited := map[string]struct{}{wallet: {}}
	queue := []hop{{
		wallet:      wallet,
		depth:       0,
		anchorBlock: eventBlock,
		anchorTime:  eventTime,
	}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := queue[0]
		queue = queue[1:]

		candidates, err := e.nextTransactions(ctx, entry, dir, window, maxBranches)
		if err != nil {
			return nil, err
		}

		for _, candidate := range candidates {
			body, err := e.transactionBody(ctx, candidate.TxID)
			if err != nil {
				e.logger.Debug("skip hop with unfetchable body",
					zap.String("txid", candidate.TxID), zap.Error(err))
				continue
			}
			counterparty := counterpartyAddress(body, entry.wallet, dir)
			if counterparty == "" {
				continue
			}

			if _, seen := visited[counterparty]; seen {
				e.circularDetections.Add(1)
				e.metrics.ObserveCircular()
				continue
			}

			level := entry.depth + 1
			chain := appendCopy(entry.chain, entry.wallet)
			txids := appendCopy(entry.txids, candidate.TxID)

			if op, found := e.operatorStatus(counterparty); found {
				return &bfsHit{
					Level:       level,
					NodeWallet:  counterparty,
					Chain:       chain,
					TxIDs:       txids,
					Method:      methodCurrentAPI,
					Status:      statusActive,
					Operator:    op,
					HasOperator: true,
				}, nil
			}

			if e.cfg.HistoricalDetection.Enabled {
				histWindow := e.cfg.HistoricalDetection.TimeWindowBlocks
				fromBlock := uint64(0)
				if eventBlock > histWindow {
					fromBlock = eventBlock - histWindow
				}
				cb, err := e.coinbaseCheck(ctx, counterparty, fromBlock, eventBlock)
				if err == nil && cb.Found {
					return &bfsHit{
						Level:      level,
						NodeWallet: counterparty,
						Chain:      chain,
						TxIDs:      txids,
						Method:     methodHistoricalCoinbase,
						Status:     statusHistorical,
						Coinbase:   cb,
					}, nil
				}
			}

			if level < maxHops {
				visited[counterparty] = struct{}{}
				queue = append(queue, hop{
					wallet:      counterparty,
					depth:       level,
					chain:       chain,
					txids:       txids,
					anchorBlock: candidate.BlockHeight,
					anchorTime:  candidate.Timestamp,
				})
			}
		}
	}

	return nil, nil
}

// nextTransactions picks up to maxBranches candidate transactions for one
// expansion: the wallet's next outbound transfers strictly after the anchor
// for buys, or its most recent inbound transfers strictly before the anchor
// for sells, both bounded by the traversal window.
func (e *Engine) nextTransactions(ctx context.Context, entry hop, dir indexer.Direction, window uint64, maxBranches int) ([]indexer.AddressTx, error) {
	txs, err := e.walletTransactions(ctx, entry.wallet)
	if err != nil {
		return nil, err
	}

	var candidates []indexer.AddressTx
	if dir == indexer.DirectionSent {
		for _, tx := range txs {
			if tx.Direction != indexer.DirectionSent || tx.IsCoinbase {
				continue
			}
			if !strictlyAfter(tx, entry.anchorBlock, entry.anchorTime) {
				continue
			}
			if window > 0 && tx.BlockHeight > entry.anchorBlock+window {
				continue
			}
			candidates = append(candidates, tx)
			if len(candidates) == maxBranches {
				break
			}
		}
		return candidates, nil
	}

	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if tx.Direction != indexer.DirectionReceived || tx.IsCoinbase {
			continue
		}
		if !strictlyBefore(tx, entry.anchorBlock, entry.anchorTime) {
			continue
		}
		if window > 0 && tx.BlockHeight+window < entry.anchorBlock {
			continue
		}
		candidates = append(candidates, tx)
		if len(candidates) == maxBranches {
			break
		}
	}
	return candidates, nil
}

func strictlyAfter(tx indexer.AddressTx, block uint64, ts int64) bool {
	if tx.BlockHeight != block {
		return tx.BlockHeight > block
	}
	return tx.Timestamp > ts
}

func strictlyBefore(tx indexer.AddressTx, block uint64, ts int64) bool {
	if tx.BlockHeight != block {
		return tx.BlockHeight < block
	}
	return tx.Timestamp < ts
}

// appendCopy appends without sharing the backing array between branches.
func appendCopy(base []string, v string) []string {
	out := make([]string, 0, len(base)+1)
	out = append(out, base...)
	return append(out, v)
}
