// Package pipeline keeps the store's flow events within the retention window
// of the chain tip.
package pipeline

import (
	"context"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/config"
	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=pipeline

type (
	// Store is the persistence surface the pipeline writes through.
	Store interface {
		SaveBlocks(ctx context.Context, blocks []model.Block) error
		SaveTransactions(ctx context.Context, txs []model.Transaction) error
		SaveFlowEventsBatch(ctx context.Context, events []model.FlowEvent) error
		MaxBlockHeight(ctx context.Context) (uint64, bool, error)
		MinBlockHeight(ctx context.Context) (uint64, bool, error)
		BlockCount(ctx context.Context) (uint64, error)
		CleanupOldData(ctx context.Context, currentBlock, windowBlocks uint64) error
		SetSyncState(ctx context.Context, key, value string) error
	}

	// Chain is the upstream capability subset the pipeline needs.
	Chain interface {
		ChainHeight(ctx context.Context) (uint64, error)
		GetBlock(ctx context.Context, height uint64) (*indexer.Block, error)
		Settings() config.SourceConfig
	}

	// Classifier answers address classification queries.
	Classifier interface {
		Classify(addr string) model.Classification
	}

	// Metrics records pipeline outcomes.
	Metrics interface {
		ObserveTick(err error, started time.Time)
		ObserveBatch(blocks, flowEvents int)
		SetConsecutiveErrors(n int)
		SetBlocksPerMinute(v float64)
	}
)

// State names for the per-tick state machine.
const (
	StateIdle       = "idle"
	StateFetching   = "fetching"
	StateProcessing = "processing"
	StateCommitting = "committing"
)

// Status is a point-in-time snapshot of the pipeline.
type Status struct {
	State             string        `json:"state"`
	LatestSynced      uint64        `json:"latest_synced"`
	OldestStored      uint64        `json:"oldest_stored"`
	ChainTip          uint64        `json:"chain_tip"`
	BlocksPerMinute   float64       `json:"blocks_per_minute"`
	LastBatchSize     int           `json:"last_batch_size"`
	LastBatchDuration time.Duration `json:"last_batch_duration"`
	ConsecutiveErrors int           `json:"consecutive_errors"`
	LastTick          time.Time     `json:"last_tick"`
}
