package model

import "github.com/shopspring/decimal"

// Block is a chain block persisted for the retention window.
type Block struct {
	Height  uint64
	Hash    string
	Time    int64
	TxCount uint32
	Size    uint32
}

// Transaction stores aggregate counts and value sums for a relevant
// transaction. Full input/output detail stays upstream; the enhancement
// engine re-fetches bodies on demand.
type Transaction struct {
	TxID        string
	BlockHeight uint64
	Time        int64
	InputCount  uint32
	OutputCount uint32
	InputValue  decimal.Decimal
	OutputValue decimal.Decimal
}
