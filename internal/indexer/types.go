// Package indexer abstracts the upstream block data sources behind one
// capability set and normalizes their shapes.
package indexer

import "context"

// Direction of an address-level transaction relative to the wallet.
type Direction string

const (
	// DirectionSent marks value leaving the wallet.
	DirectionSent Direction = "sent"
	// DirectionReceived marks value arriving at the wallet.
	DirectionReceived Direction = "received"
)

// TxKind is the transaction summary exposed inline by the local indexer.
type TxKind string

const (
	// TxKindTransfer is the only kind relevant to flow tracking.
	TxKindTransfer TxKind = "transfer"
	// TxKindCoinbase is a block reward transaction.
	TxKindCoinbase TxKind = "coinbase"
	// TxKindNodeConfirmation is a node heartbeat transaction.
	TxKindNodeConfirmation TxKind = "node_confirmation"
)

// Vin is a normalized transaction input.
type Vin struct {
	Addresses []string
	Coinbase  bool
}

// Vout is a normalized transaction output. ValueSat is in satoshis; addresses
// nested under scriptPubKey are lifted here during normalization.
type Vout struct {
	N         uint32
	ValueSat  uint64
	Addresses []string
}

// Tx is a normalized transaction.
type Tx struct {
	TxID string
	Kind TxKind
	Vin  []Vin
	Vout []Vout
}

// Block is a normalized block with its relevant transactions fully fetched.
type Block struct {
	Height uint64
	Hash   string
	Time   int64
	Size   uint32
	Txs    []Tx
}

// AddressTx is one entry of a wallet's chronological transaction list.
type AddressTx struct {
	TxID        string
	BlockHeight uint64
	Timestamp   int64
	Direction   Direction
	IsCoinbase  bool
}

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=indexer

// Source is the capability set both upstream implementations satisfy.
type Source interface {
	Name() string
	ChainHeight(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, height uint64) (*Block, error)
	GetTransaction(ctx context.Context, txid string) (*Tx, error)
	GetAddressTransactions(ctx context.Context, addr string) ([]AddressTx, error)
}
