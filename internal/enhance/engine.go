package enhance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/config"
	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
	"github.com/fluxsignal/exchange-flow-backend/internal/store"
)

// Engine rewrites unknown flow event sides that turn out to be node
// operators reachable through intermediary wallets.
type Engine struct {
	logger     *zap.Logger
	store      Store
	chain      Chain
	classifier Classifier
	cache      *Cache
	metrics    Metrics
	cfg        config.EnhancementConfig

	blockTimeSeconds int
	now              func() time.Time

	running atomic.Bool

	runs               atomic.Int64
	eventsEnhanced     atomic.Int64
	eventsMissed       atomic.Int64
	circularDetections atomic.Int64
}

// New wires an enhancement engine.
func New(
	st Store,
	chain Chain,
	classifier Classifier,
	cache *Cache,
	metrics Metrics,
	cfg config.EnhancementConfig,
	blockTimeSeconds int,
	logger *zap.Logger,
) (*Engine, error) {
	if metrics == nil {
		return nil, errors.New("enhancement metrics is required")
	}
	if cache == nil {
		return nil, errors.New("enhancement cache is required")
	}
	return &Engine{
		logger:           logger.Named("enhance"),
		store:            st,
		chain:            chain,
		classifier:       classifier,
		cache:            cache,
		metrics:          metrics,
		cfg:              cfg,
		blockTimeSeconds: blockTimeSeconds,
		now:              time.Now,
	}, nil
}

// Counters returns engine-lifetime totals.
func (e *Engine) Counters() Counters {
	return Counters{
		Runs:               e.runs.Load(),
		EventsEnhanced:     e.eventsEnhanced.Load(),
		EventsMissed:       e.eventsMissed.Load(),
		CircularDetections: e.circularDetections.Load(),
	}
}

// CacheStats exposes the memoization counters.
func (e *Engine) CacheStats() map[string]SubCacheStats {
	return e.cache.Stats()
}

// EnhanceUnknowns processes every eligible unknown flow event once. The run
// is idempotent under crash: each event's final write is a single store call,
// so a re-run finds every event either enhanced or inside the cooldown.
func (e *Engine) EnhanceUnknowns(ctx context.Context) (*RunReport, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Info("enhancement run already in progress; skipping")
		return &RunReport{}, nil
	}
	defer e.running.Store(false)

	started := time.Now()
	var err error
	defer func() {
		e.metrics.ObserveRun(err, started)
	}()

	if e.classifier.SnapshotAge() > refreshAfter {
		if refreshErr := e.classifier.RefreshNodeOperators(ctx); refreshErr != nil {
			e.logger.Warn("registry refresh failed; continuing with stale snapshot", zap.Error(refreshErr))
		}
	}

	unknowns, err := e.store.GetUnknownWallets(ctx, e.cfg.FailedRetry())
	if err != nil {
		return nil, fmt.Errorf("load unknown wallets: %w", err)
	}

	tasks := buildTasks(unknowns)
	report := &RunReport{}
	if len(tasks) == 0 {
		report.Took = time.Since(started)
		return report, nil
	}

	e.logger.Info("enhancement run starting",
		zap.Int("buys", len(unknowns.Buys)),
		zap.Int("sells", len(unknowns.Sells)),
		zap.Int("tasks", len(tasks)),
	)

	var (
		mu       sync.Mutex
		enhanced int
		missed   int
		failures int
	)
	record := func(ok bool, taskErr error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case taskErr != nil:
			failures++
			e.metrics.ObserveEvent(outcomeError)
		case ok:
			enhanced++
			e.metrics.ObserveEvent(outcomeEnhanced)
		default:
			missed++
			e.metrics.ObserveEvent(outcomeMiss)
		}
	}

	batchSize := e.cfg.ParallelProcessing.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	parallel := e.cfg.ParallelProcessing.Enabled && e.cfg.ParallelProcessing.MaxConcurrent > 1

	var pool pond.Pool
	if parallel {
		pool = pond.NewPool(e.cfg.ParallelProcessing.MaxConcurrent)
		defer pool.StopAndWait()
	}

	// Batches run serially so batch-level logging and cache warm-up stay
	// coherent; events within a batch run concurrently.
	for offset := 0; offset < len(tasks); offset += batchSize {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		end := offset + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := tasks[offset:end]

		if parallel {
			group := pool.NewGroupContext(ctx)
			for _, t := range batch {
				t := t
				group.Submit(func() {
					ok, taskErr := e.analyze(ctx, t)
					record(ok, taskErr)
				})
			}
			if waitErr := group.Wait(); waitErr != nil && !errors.Is(waitErr, context.Canceled) {
				e.logger.Warn("enhancement batch group error", zap.Error(waitErr))
			}
		} else {
			for _, t := range batch {
				ok, taskErr := e.analyze(ctx, t)
				record(ok, taskErr)
			}
		}

		e.logger.Debug("enhancement batch done",
			zap.Int("offset", offset),
			zap.Int("size", len(batch)),
		)
	}

	e.cache.ClearExpired()
	e.runs.Add(1)

	report.Analyzed = enhanced + missed + failures
	report.Enhanced = enhanced
	report.Missed = missed
	report.Errors = failures
	report.Took = time.Since(started)

	e.logger.Info("enhancement run finished",
		zap.Int("analyzed", report.Analyzed),
		zap.Int("enhanced", report.Enhanced),
		zap.Int("missed", report.Missed),
		zap.Int("errors", report.Errors),
		zap.Duration("took", report.Took),
	)
	return report, err
}

// buildTasks merges both sides and deduplicates by event id so no two tasks
// of one run ever target the same row.
func buildTasks(unknowns *store.UnknownWallets) []task {
	tasks := make([]task, 0, unknowns.Total)
	seen := make(map[int64]struct{}, unknowns.Total)

	for _, ev := range unknowns.Buys {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		tasks = append(tasks, task{event: ev, wallet: ev.ToAddress, direction: indexer.DirectionSent})
	}
	for _, ev := range unknowns.Sells {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		tasks = append(tasks, task{event: ev, wallet: ev.FromAddress, direction: indexer.DirectionReceived})
	}
	return tasks
}

// analyze runs both detection lanes for one event and writes the result.
func (e *Engine) analyze(ctx context.Context, t task) (bool, error) {
	if t.wallet == "" {
		return false, e.stampMiss(ctx, t.event.ID)
	}

	// Lane A: direct historical checks on the observed wallet (level 0).
	if e.cfg.HistoricalDetection.Enabled {
		histWindow := e.cfg.HistoricalDetection.TimeWindowBlocks
		fromBlock := uint64(0)
		if t.event.BlockHeight > histWindow {
			fromBlock = t.event.BlockHeight - histWindow
		}

		cb, err := e.coinbaseCheck(ctx, t.wallet, fromBlock, t.event.BlockHeight)
		if err != nil {
			return false, err
		}
		if cb.Found {
			return true, e.applyCoinbase(ctx, t, cb)
		}

		if e.cfg.HistoricalConnections.Enabled {
			conn, err := e.historicalConnection(ctx, t.wallet, t.direction, t.event.BlockHeight)
			if err != nil {
				return false, err
			}
			if conn.Found {
				return true, e.applyConnection(ctx, t, conn)
			}
		}
	}

	// Lane B: multi-hop BFS.
	hit, err := e.multiHop(ctx, t.wallet, t.direction, t.event.BlockHeight, t.event.BlockTime)
	if err != nil {
		return false, err
	}
	if hit != nil {
		return true, e.applyHit(ctx, t, hit)
	}

	return false, e.stampMiss(ctx, t.event.ID)
}

// stampMiss records a failed attempt so the event sits out the cooldown.
func (e *Engine) stampMiss(ctx context.Context, id int64) error {
	e.eventsMissed.Add(1)
	now := e.now().Unix()
	return e.store.UpdateFlowEventClassification(ctx, id, store.ClassificationPatch{
		AnalysisTimestamp: &now,
	})
}

// applyCoinbase writes a level-0 historical coinbase result.
func (e *Engine) applyCoinbase(ctx context.Context, t task, cb coinbaseResult) error {
	e.eventsEnhanced.Add(1)
	e.metrics.ObserveHit(0)

	details := model.Details{
		"detectionMethod": methodHistoricalCoinbase,
		"lastBlock":       cb.LastBlock,
		"count":           cb.Count,
		"daysInactive":    e.blocksToDays(t.event.BlockHeight - cb.LastBlock),
	}
	return e.writeResult(ctx, t, 0, nil, details)
}

// applyConnection writes a level-0 historical connection result.
func (e *Engine) applyConnection(ctx context.Context, t task, conn connectionResult) error {
	e.eventsEnhanced.Add(1)
	e.metrics.ObserveHit(0)

	details := model.Details{
		"detectionMethod": conn.Method,
		"nodeWallet":      conn.NodeWallet,
		"connectionTxid":  conn.ConnectionTxID,
		"daysAgo":         e.blocksToDays(t.event.BlockHeight - conn.ConnectionBlock),
	}
	if conn.CoinbaseCount > 0 {
		details["coinbaseCount"] = conn.CoinbaseCount
	}
	return e.writeResult(ctx, t, 0, nil, details)
}

// applyHit writes a multi-hop BFS result.
func (e *Engine) applyHit(ctx context.Context, t task, hit *bfsHit) error {
	e.eventsEnhanced.Add(1)
	e.metrics.ObserveHit(hit.Level)

	details := model.Details{
		"detectionMethod":   hit.Method,
		"status":            hit.Status,
		"nodeWallet":        hit.NodeWallet,
		"hopCount":          hit.Level,
		"intermediaryTxids": hit.TxIDs,
	}
	if hit.HasOperator {
		details["node_count"] = hit.Operator.NodeCount
		details["tiers"] = map[string]int{
			model.TierCumulus: hit.Operator.Tiers.Cumulus,
			model.TierNimbus:  hit.Operator.Tiers.Nimbus,
			model.TierStratus: hit.Operator.Tiers.Stratus,
		}
	}
	if hit.Method == methodHistoricalCoinbase {
		details["coinbaseCount"] = hit.Coinbase.Count
		details["daysInactive"] = e.blocksToDays(t.event.BlockHeight - hit.Coinbase.LastBlock)
	}

	return e.writeResult(ctx, t, hit.Level, hit.Chain, details)
}

// writeResult builds and applies the single-row patch for a successful
// detection on the event's unknown side.
func (e *Engine) writeResult(ctx context.Context, t task, level int, chain []string, details model.Details) error {
	now := e.now().Unix()
	operatorType := model.AddressNodeOperator
	enhanced := model.DataSourceEnhanced

	patch := store.ClassificationPatch{
		ClassificationLevel: &level,
		AnalysisTimestamp:   &now,
		DataSource:          &enhanced,
	}

	if level > 0 {
		patch.SetHopChain = true
		patch.HopChain = chain
		patch.SetIntermediary = true
		if len(chain) > 0 {
			first := chain[0]
			patch.IntermediaryWallet = &first
		}
	}

	if t.direction == indexer.DirectionSent {
		patch.ToType = &operatorType
		patch.ToDetails = details
	} else {
		patch.FromType = &operatorType
		patch.FromDetails = details
	}

	return e.store.UpdateFlowEventClassification(ctx, t.event.ID, patch)
}
