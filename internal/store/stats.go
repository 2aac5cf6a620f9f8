package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// FlowAggregate is the per-flow-type rollup inside Stats.
type FlowAggregate struct {
	Count  uint64
	Amount decimal.Decimal
}

// LevelCount is one (classification_level, data_source) bucket.
type LevelCount struct {
	Level      int
	DataSource model.DataSource
	Count      uint64
}

// Stats summarizes the current database contents.
type Stats struct {
	Blocks       uint64
	Transactions uint64
	FlowEvents   uint64

	FlowTotals map[model.FlowType]FlowAggregate
	Levels     []LevelCount

	MinHeight uint64
	MaxHeight uint64

	FileSizeBytes int64
}

// GetStats gathers row counts, per-flow-type aggregates, per-level counts,
// the stored height range, and the database file size.
func (s *Store) GetStats(ctx context.Context) (stats *Stats, err error) {
	start := time.Now()
	defer func() {
		s.observe("get_stats", err, start)
	}()

	stats = &Stats{FlowTotals: map[model.FlowType]FlowAggregate{}}

	for _, q := range []struct {
		query string
		dest  *uint64
	}{
		{"SELECT count(*) FROM blocks", &stats.Blocks},
		{"SELECT count(*) FROM transactions", &stats.Transactions},
		{"SELECT count(*) FROM flow_events", &stats.FlowEvents},
	} {
		if err = s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats count: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT flow_type, count(*), coalesce(sum(CAST(amount AS REAL)), 0)
FROM flow_events
GROUP BY flow_type`)
	if err != nil {
		return nil, fmt.Errorf("stats flow totals: %w", err)
	}
	for rows.Next() {
		var (
			flowType string
			count    uint64
			amount   float64
		)
		if err = rows.Scan(&flowType, &count, &amount); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan flow totals: %w", err)
		}
		stats.FlowTotals[model.FlowType(flowType)] = FlowAggregate{
			Count:  count,
			Amount: decimal.NewFromFloat(amount),
		}
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate flow totals: %w", err)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `
SELECT classification_level, data_source, count(*)
FROM flow_events
GROUP BY classification_level, data_source
ORDER BY classification_level, data_source`)
	if err != nil {
		return nil, fmt.Errorf("stats levels: %w", err)
	}
	for rows.Next() {
		var lc LevelCount
		var source string
		if err = rows.Scan(&lc.Level, &source, &lc.Count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan levels: %w", err)
		}
		lc.DataSource = model.DataSource(source)
		stats.Levels = append(stats.Levels, lc)
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate levels: %w", err)
	}
	_ = rows.Close()

	if min, ok, hErr := s.MinBlockHeight(ctx); hErr == nil && ok {
		stats.MinHeight = min
	}
	if max, ok, hErr := s.MaxBlockHeight(ctx); hErr == nil && ok {
		stats.MaxHeight = max
	}

	if info, statErr := os.Stat(s.path); statErr == nil {
		stats.FileSizeBytes = info.Size()
	}

	return stats, nil
}
