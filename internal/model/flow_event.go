package model

import "github.com/shopspring/decimal"

// FlowType describes the direction of value relative to exchanges.
type FlowType string

const (
	// FlowBuying is an exchange paying out to a non-exchange address.
	FlowBuying FlowType = "buying"
	// FlowSelling is a non-exchange address paying into an exchange.
	FlowSelling FlowType = "selling"
	// FlowP2P is any transfer that is neither a buy nor a sell.
	FlowP2P FlowType = "p2p"
)

// DataSource records which subsystem last wrote a flow event.
type DataSource string

const (
	// DataSourceSync marks rows written by the ingestion pipeline.
	DataSourceSync DataSource = "sync"
	// DataSourceEnhanced marks rows rewritten by the enhancement engine.
	DataSourceEnhanced DataSource = "enhanced"
)

// DeriveFlowType computes the flow type from the two side classifications.
// buying iff from is an exchange and to is not; selling iff to is an exchange
// and from is not; p2p otherwise (including exchange-to-exchange change).
func DeriveFlowType(from, to AddressType) FlowType {
	switch {
	case from == AddressExchange && to != AddressExchange:
		return FlowBuying
	case to == AddressExchange && from != AddressExchange:
		return FlowSelling
	default:
		return FlowP2P
	}
}

// FlowEvent is one (txid, vout) pair of a transaction that involves at least
// one classified address. It is the unit of persistence for the system.
type FlowEvent struct {
	ID          int64
	TxID        string
	Vout        uint32
	BlockHeight uint64
	BlockTime   int64

	FromAddress string
	FromType    AddressType
	FromDetails Details
	ToAddress   string
	ToType      AddressType
	ToDetails   Details

	FlowType FlowType
	Amount   decimal.Decimal

	// Enhancement bookkeeping. ClassificationLevel is the number of
	// intermediary wallets between the observed address and a node operator;
	// HopChain holds exactly that many wallets and never contains the final
	// operator wallet. IntermediaryWallet mirrors HopChain[0] for consumers
	// that only need the first hop; the chain is canonical.
	ClassificationLevel int
	IntermediaryWallet  *string
	HopChain            []string
	AnalysisTimestamp   *int64
	DataSource          DataSource
}
