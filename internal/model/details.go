package model

// Details is the self-describing JSON payload attached to either side of a
// flow event. The maps are heterogeneous on purpose: schema evolution must not
// require a storage migration.
type Details map[string]any

// ExchangeDetails builds the detail payload for an exchange address.
func ExchangeDetails(name, logo string) Details {
	return Details{"name": name, "logo": logo}
}

// FoundationDetails builds the detail payload for a foundation address.
func FoundationDetails(name string) Details {
	return Details{"name": name}
}

// NodeOperatorDetails builds the detail payload for a current node operator.
func NodeOperatorDetails(op NodeOperator) Details {
	return Details{
		"node_count": op.NodeCount,
		"tiers": map[string]int{
			TierCumulus: op.Tiers.Cumulus,
			TierNimbus:  op.Tiers.Nimbus,
			TierStratus: op.Tiers.Stratus,
		},
	}
}
