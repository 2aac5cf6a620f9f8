package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/clock"
	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
	"github.com/fluxsignal/exchange-flow-backend/pkg/batcher"
	"github.com/fluxsignal/exchange-flow-backend/pkg/workerpool"
)

// Service drives concurrent block fetch, relevance filtering, flow event
// construction, batched commits, and rolling retention.
type Service struct {
	logger       *zap.Logger
	store        Store
	chain        Chain
	classifier   Classifier
	metrics      Metrics
	builder      *flowBuilder
	windowBlocks uint64
	sleep        func(context.Context, time.Duration) error

	blockBatcher *batcher.Batcher[model.Block]
	txBatcher    *batcher.Batcher[model.Transaction]

	running atomic.Bool
	state   atomic.Value

	mu                sync.Mutex
	chainTip          uint64
	blocksPerMinute   float64
	lastBatchSize     int
	lastBatchDuration time.Duration
	consecutiveErrors int
	lastTick          time.Time
}

// New wires a pipeline service. Start must be called before the first tick.
func New(store Store, chain Chain, classifier Classifier, metrics Metrics, windowBlocks uint64, logger *zap.Logger) (*Service, error) {
	if metrics == nil {
		return nil, fmt.Errorf("pipeline metrics is required")
	}
	logger = logger.Named("pipeline")

	s := &Service{
		logger:       logger,
		store:        store,
		chain:        chain,
		classifier:   classifier,
		metrics:      metrics,
		builder:      &flowBuilder{classifier: classifier},
		windowBlocks: windowBlocks,
		sleep:        clock.SleepWithContext,
	}
	s.state.Store(StateIdle)

	s.blockBatcher = batcher.New(logger.Named("blockWriter"), store.SaveBlocks, batcherFlushSize, batcherFlushInterval, batcherFlushRPS)
	s.txBatcher = batcher.New(logger.Named("txWriter"), store.SaveTransactions, batcherFlushSize, batcherFlushInterval, batcherFlushRPS)
	return s, nil
}

// Start launches the background block/transaction writers.
func (s *Service) Start(ctx context.Context) {
	s.blockBatcher.Start(ctx)
	s.txBatcher.Start(ctx)
}

// Stop flushes and stops the background writers.
func (s *Service) Stop() {
	s.blockBatcher.Stop()
	s.txBatcher.Stop()
}

// Status returns a snapshot for the status endpoint.
func (s *Service) Status(ctx context.Context) Status {
	s.mu.Lock()
	st := Status{
		State:             s.state.Load().(string),
		ChainTip:          s.chainTip,
		BlocksPerMinute:   s.blocksPerMinute,
		LastBatchSize:     s.lastBatchSize,
		LastBatchDuration: s.lastBatchDuration,
		ConsecutiveErrors: s.consecutiveErrors,
		LastTick:          s.lastTick,
	}
	s.mu.Unlock()

	if max, ok, err := s.store.MaxBlockHeight(ctx); err == nil && ok {
		st.LatestSynced = max
	}
	if min, ok, err := s.store.MinBlockHeight(ctx); err == nil && ok {
		st.OldestStored = min
	}
	return st
}

// Tick runs one ingestion cycle. Overlapping ticks are rejected: when the
// previous tick has not reached idle the call logs and returns.
func (s *Service) Tick(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("previous tick still running; skipping")
		return nil
	}
	defer func() {
		s.running.Store(false)
		s.state.Store(StateIdle)
	}()

	started := time.Now()
	var err error
	defer func() {
		s.metrics.ObserveTick(err, started)
		s.mu.Lock()
		s.lastTick = time.Now()
		s.mu.Unlock()
	}()

	s.state.Store(StateFetching)

	tip, err := s.chain.ChainHeight(ctx)
	if err != nil {
		return fmt.Errorf("read chain height: %w", err)
	}
	s.mu.Lock()
	s.chainTip = tip
	s.mu.Unlock()

	heights, err := s.planHeights(ctx, tip)
	if err != nil {
		return err
	}
	if len(heights) == 0 {
		s.logger.Debug("nothing to ingest", zap.Uint64("tip", tip))
		err = s.maybeCleanup(ctx, tip)
		return err
	}

	blocks := s.fetchBlocks(ctx, heights)
	if len(blocks) == 0 {
		err = fmt.Errorf("all %d block fetches failed", len(heights))
		return err
	}

	s.state.Store(StateProcessing)

	var (
		events []model.FlowEvent
		txRows []model.Transaction
	)
	for _, block := range blocks {
		blockEvents, blockTxs := s.builder.Build(block)
		events = append(events, blockEvents...)
		txRows = append(txRows, blockTxs...)
	}

	s.state.Store(StateCommitting)

	for _, block := range blocks {
		if addErr := s.blockBatcher.Add(ctx, model.Block{
			Height:  block.Height,
			Hash:    block.Hash,
			Time:    block.Time,
			TxCount: uint32(len(block.Txs)),
			Size:    block.Size,
		}); addErr != nil {
			err = fmt.Errorf("queue block %d: %w", block.Height, addErr)
			return err
		}
	}
	for _, tx := range txRows {
		if addErr := s.txBatcher.Add(ctx, tx); addErr != nil {
			err = fmt.Errorf("queue transaction %s: %w", tx.TxID, addErr)
			return err
		}
	}

	// Blocks and transactions must be durable before the flow events that
	// reference them.
	if err = s.blockBatcher.Flush(ctx); err != nil {
		return fmt.Errorf("flush blocks: %w", err)
	}
	if err = s.txBatcher.Flush(ctx); err != nil {
		return fmt.Errorf("flush transactions: %w", err)
	}

	if err = s.store.SaveFlowEventsBatch(ctx, events); err != nil {
		return fmt.Errorf("commit flow events: %w", err)
	}

	elapsed := time.Since(started)
	s.recordBatch(len(blocks), len(events), elapsed)

	// Checkpoints are advisory; losing one only costs the next tick a
	// re-derivation from the blocks table.
	if stateErr := s.store.SetSyncState(ctx, syncStateLastTip, strconv.FormatUint(tip, 10)); stateErr != nil {
		s.logger.Warn("persist sync checkpoint failed", zap.Error(stateErr))
	}

	s.logger.Info("batch committed",
		zap.Int("blocks", len(blocks)),
		zap.Int("flow_events", len(events)),
		zap.Duration("took", elapsed),
	)

	err = s.maybeCleanup(ctx, tip)
	return err
}

// planHeights picks the next batch: forward toward the tip first, then
// backward until the retention window is full.
func (s *Service) planHeights(ctx context.Context, tip uint64) ([]uint64, error) {
	batchSize := s.chain.Settings().BatchSize
	if batchSize == 0 {
		batchSize = 1
	}

	maxStored, haveMax, err := s.store.MaxBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("read max stored height: %w", err)
	}

	// Empty store: start at the tip and let backward fill catch up.
	if !haveMax {
		start := uint64(1)
		if tip > batchSize {
			start = tip - batchSize + 1
		}
		return heightRange(start, tip), nil
	}

	if maxStored < tip {
		end := maxStored + batchSize
		if end > tip {
			end = tip
		}
		return heightRange(maxStored+1, end), nil
	}

	// Caught up: fill backward while the window has room.
	count, err := s.store.BlockCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("read block count: %w", err)
	}
	minStored, haveMin, err := s.store.MinBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("read min stored height: %w", err)
	}

	retentionFloor := uint64(1)
	if tip > s.windowBlocks {
		retentionFloor = tip - s.windowBlocks + 1
	}

	if haveMin && count < s.windowBlocks && minStored > retentionFloor {
		start := retentionFloor
		if minStored > batchSize && minStored-batchSize > retentionFloor {
			start = minStored - batchSize
		}
		return heightRange(start, minStored-1), nil
	}

	return nil, nil
}

// fetchBlocks splits heights into chunks of the source's concurrency limit;
// chunks run serially with the configured inter-batch delay, blocks within a
// chunk concurrently. A failed block is skipped, not fatal.
func (s *Service) fetchBlocks(ctx context.Context, heights []uint64) []*indexer.Block {
	settings := s.chain.Settings()
	chunkSize := settings.MaxConcurrent
	if chunkSize <= 0 {
		chunkSize = 1
	}

	var blocks []*indexer.Block
	for offset := 0; offset < len(heights); offset += chunkSize {
		end := offset + chunkSize
		if end > len(heights) {
			end = len(heights)
		}
		chunk := heights[offset:end]

		results := workerpool.Collect(ctx, chunkSize, chunk,
			func(ctx context.Context, height uint64) (*indexer.Block, error) {
				return s.chain.GetBlock(ctx, height)
			})

		for _, res := range results {
			if res.Err != nil {
				s.recordBlockError()
				s.logger.Warn("block fetch failed; skipping",
					zap.Uint64("height", res.Item),
					zap.Error(res.Err),
				)
				continue
			}
			s.recordBlockSuccess()
			blocks = append(blocks, res.Value)
		}

		if end < len(heights) && settings.BatchDelay() > 0 {
			if err := s.sleep(ctx, settings.BatchDelay()); err != nil {
				break
			}
		}
	}
	return blocks
}

// maybeCleanup triggers the retention sweep when the stored span exceeds the
// window by more than 10%.
func (s *Service) maybeCleanup(ctx context.Context, tip uint64) error {
	minStored, haveMin, err := s.store.MinBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("read min height for retention: %w", err)
	}
	maxStored, haveMax, err := s.store.MaxBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("read max height for retention: %w", err)
	}
	if !haveMin || !haveMax {
		return nil
	}

	span := maxStored - minStored + 1
	if float64(span) <= float64(s.windowBlocks)*retentionSlack {
		return nil
	}

	s.logger.Info("running retention sweep",
		zap.Uint64("span", span),
		zap.Uint64("window", s.windowBlocks),
		zap.Uint64("tip", tip),
	)
	if err := s.store.CleanupOldData(ctx, tip, s.windowBlocks); err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}
	return nil
}

func (s *Service) recordBatch(blocks, events int, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastBatchSize = blocks
	s.lastBatchDuration = took
	if took > 0 {
		s.blocksPerMinute = float64(blocks) / took.Minutes()
	}
	s.metrics.ObserveBatch(blocks, events)
	s.metrics.SetBlocksPerMinute(s.blocksPerMinute)
}

func (s *Service) recordBlockError() {
	s.mu.Lock()
	s.consecutiveErrors++
	n := s.consecutiveErrors
	s.mu.Unlock()
	s.metrics.SetConsecutiveErrors(n)
}

func (s *Service) recordBlockSuccess() {
	s.mu.Lock()
	if s.consecutiveErrors > 0 {
		s.consecutiveErrors--
	}
	n := s.consecutiveErrors
	s.mu.Unlock()
	s.metrics.SetConsecutiveErrors(n)
}

func heightRange(start, end uint64) []uint64 {
	if end < start {
		return nil
	}
	heights := make([]uint64, 0, end-start+1)
	for h := start; h <= end; h++ {
		heights = append(heights, h)
	}
	return heights
}
