// Package model defines domain models for exchange flow tracking.
package model

// AddressType describes how an address classifies against the known sets.
type AddressType string

const (
	// AddressExchange marks an address belonging to a known exchange.
	AddressExchange AddressType = "exchange"
	// AddressFoundation marks an address belonging to the foundation.
	AddressFoundation AddressType = "foundation"
	// AddressNodeOperator marks a wallet currently receiving node payments.
	AddressNodeOperator AddressType = "node_operator"
	// AddressUnknown marks an address with no match in any known set.
	AddressUnknown AddressType = "unknown"
)

// Tier names of the node network.
const (
	TierCumulus = "CUMULUS"
	TierNimbus  = "NIMBUS"
	TierStratus = "STRATUS"
)

// TierCounts holds per-tier node counts for an operator wallet.
type TierCounts struct {
	Cumulus int `json:"CUMULUS"`
	Nimbus  int `json:"NIMBUS"`
	Stratus int `json:"STRATUS"`
}

// Total returns the node count across all tiers.
func (t TierCounts) Total() int {
	return t.Cumulus + t.Nimbus + t.Stratus
}

// NodeOperator aggregates the registry records paid to one wallet.
type NodeOperator struct {
	PaymentAddress string
	NodeCount      int
	Tiers          TierCounts
}

// Classification is the result of classifying a single address.
type Classification struct {
	Type    AddressType
	Details Details
}
