package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// AddressAggregate is one row of a top-N buyers/sellers report.
type AddressAggregate struct {
	Address string
	Type    model.AddressType
	Events  uint64
	Amount  decimal.Decimal
}

// TopBuyers returns the addresses that received the most value from
// exchanges since sinceHeight.
func (s *Store) TopBuyers(ctx context.Context, sinceHeight uint64, limit int) ([]AddressAggregate, error) {
	return s.topAddresses(ctx, "top_buyers", model.FlowBuying, "to_address", "to_type", sinceHeight, limit)
}

// TopSellers returns the addresses that sent the most value to exchanges
// since sinceHeight.
func (s *Store) TopSellers(ctx context.Context, sinceHeight uint64, limit int) ([]AddressAggregate, error) {
	return s.topAddresses(ctx, "top_sellers", model.FlowSelling, "from_address", "from_type", sinceHeight, limit)
}

func (s *Store) topAddresses(ctx context.Context, op string, flow model.FlowType, addrCol, typeCol string, sinceHeight uint64, limit int) (result []AddressAggregate, err error) {
	start := time.Now()
	defer func() {
		s.observe(op, err, start)
	}()

	if limit <= 0 {
		limit = 10
	}

	query := `
SELECT ` + addrCol + `, ` + typeCol + `, count(*), coalesce(sum(CAST(amount AS REAL)), 0)
FROM flow_events
WHERE flow_type = ? AND block_height >= ?
GROUP BY ` + addrCol + `, ` + typeCol + `
ORDER BY sum(CAST(amount AS REAL)) DESC
LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, string(flow), sinceHeight, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			agg      AddressAggregate
			addrType string
			amount   float64
		)
		if err = rows.Scan(&agg.Address, &addrType, &agg.Events, &amount); err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		agg.Type = model.AddressType(addrType)
		agg.Amount = decimal.NewFromFloat(amount)
		result = append(result, agg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return result, nil
}

// FlowTotals sums event counts and amounts per flow type since sinceHeight.
func (s *Store) FlowTotals(ctx context.Context, sinceHeight uint64) (totals map[model.FlowType]FlowAggregate, err error) {
	start := time.Now()
	defer func() {
		s.observe("flow_totals", err, start)
	}()

	rows, err := s.db.QueryContext(ctx, `
SELECT flow_type, count(*), coalesce(sum(CAST(amount AS REAL)), 0)
FROM flow_events
WHERE block_height >= ?
GROUP BY flow_type`, sinceHeight)
	if err != nil {
		return nil, fmt.Errorf("query flow totals: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	totals = map[model.FlowType]FlowAggregate{}
	for rows.Next() {
		var (
			flowType string
			count    uint64
			amount   float64
		)
		if err = rows.Scan(&flowType, &count, &amount); err != nil {
			return nil, fmt.Errorf("scan flow totals: %w", err)
		}
		totals[model.FlowType(flowType)] = FlowAggregate{Count: count, Amount: decimal.NewFromFloat(amount)}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow totals: %w", err)
	}
	return totals, nil
}
