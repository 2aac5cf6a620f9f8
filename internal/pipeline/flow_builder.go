package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// flowBuilder turns normalized blocks into flow events and transaction rows.
type flowBuilder struct {
	classifier Classifier
}

// inputPriority orders the primary-input selection. Lower wins.
var inputPriority = map[model.AddressType]int{
	model.AddressExchange:     0,
	model.AddressNodeOperator: 1,
	model.AddressFoundation:   2,
	model.AddressUnknown:      3,
}

// Build applies the relevance filter and emits one flow event per output of
// every relevant transaction, plus the transaction rows themselves.
func (b *flowBuilder) Build(block *indexer.Block) ([]model.FlowEvent, []model.Transaction) {
	var (
		events []model.FlowEvent
		txs    []model.Transaction
	)

	for _, tx := range block.Txs {
		if tx.Kind != "" && tx.Kind != indexer.TxKindTransfer {
			continue
		}
		if !b.relevant(tx) {
			continue
		}

		fromAddr, fromCls := b.primaryInput(tx)
		outputValue := decimal.Zero

		for _, vout := range tx.Vout {
			if len(vout.Addresses) == 0 {
				continue
			}
			toAddr := vout.Addresses[0]
			toCls := b.classifier.Classify(toAddr)
			amount := decimal.New(int64(vout.ValueSat), -8)
			outputValue = outputValue.Add(amount)

			events = append(events, model.FlowEvent{
				TxID:        tx.TxID,
				Vout:        vout.N,
				BlockHeight: block.Height,
				BlockTime:   block.Time,
				FromAddress: fromAddr,
				FromType:    fromCls.Type,
				FromDetails: fromCls.Details,
				ToAddress:   toAddr,
				ToType:      toCls.Type,
				ToDetails:   toCls.Details,
				FlowType:    model.DeriveFlowType(fromCls.Type, toCls.Type),
				Amount:      amount,
				DataSource:  model.DataSourceSync,
			})
		}

		txs = append(txs, model.Transaction{
			TxID:        tx.TxID,
			BlockHeight: block.Height,
			Time:        block.Time,
			InputCount:  uint32(len(tx.Vin)),
			OutputCount: uint32(len(tx.Vout)),
			OutputValue: outputValue,
		})
	}
	return events, txs
}

// relevant reports whether any input or output address classifies as
// something other than unknown. Irrelevant transactions are discarded before
// any further bookkeeping.
func (b *flowBuilder) relevant(tx indexer.Tx) bool {
	for _, vin := range tx.Vin {
		for _, addr := range vin.Addresses {
			if b.classifier.Classify(addr).Type != model.AddressUnknown {
				return true
			}
		}
	}
	for _, vout := range tx.Vout {
		for _, addr := range vout.Addresses {
			if b.classifier.Classify(addr).Type != model.AddressUnknown {
				return true
			}
		}
	}
	return false
}

// primaryInput picks the input identity for the source side by priority
// exchange > node_operator > foundation > unknown over all input addresses.
func (b *flowBuilder) primaryInput(tx indexer.Tx) (string, model.Classification) {
	bestAddr := ""
	best := model.Classification{Type: model.AddressUnknown}
	bestRank := inputPriority[model.AddressUnknown] + 1

	for _, vin := range tx.Vin {
		for _, addr := range vin.Addresses {
			cls := b.classifier.Classify(addr)
			if rank := inputPriority[cls.Type]; rank < bestRank {
				bestAddr, best, bestRank = addr, cls, rank
			}
		}
	}
	return bestAddr, best
}
