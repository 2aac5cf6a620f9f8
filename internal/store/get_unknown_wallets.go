package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// unknownSideLimit caps how many events each side of an enhancement run sees.
const unknownSideLimit = 1000

// UnknownWallets holds the level-0 flow events whose unknown side is still
// eligible for enhancement.
type UnknownWallets struct {
	Buys  []model.FlowEvent
	Sells []model.FlowEvent
	Total int
}

// GetUnknownWallets returns unenhanced flow events: buys whose destination is
// unknown and sells whose source is unknown, excluding rows whose last failed
// analysis is still inside the cooldown.
func (s *Store) GetUnknownWallets(ctx context.Context, retryAfter time.Duration) (*UnknownWallets, error) {
	start := time.Now()
	var err error
	defer func() {
		s.observe("get_unknown_wallets", err, start)
	}()

	cutoff := time.Now().Add(-retryAfter).Unix()

	buys, err := s.queryUnknownSide(ctx, "to_type", cutoff)
	if err != nil {
		return nil, fmt.Errorf("query unknown buys: %w", err)
	}
	sells, err := s.queryUnknownSide(ctx, "from_type", cutoff)
	if err != nil {
		return nil, fmt.Errorf("query unknown sells: %w", err)
	}

	return &UnknownWallets{
		Buys:  buys,
		Sells: sells,
		Total: len(buys) + len(sells),
	}, nil
}

func (s *Store) queryUnknownSide(ctx context.Context, sideColumn string, cutoff int64) ([]model.FlowEvent, error) {
	query := `
SELECT ` + flowEventColumns + `
FROM flow_events
WHERE classification_level = 0
  AND ` + sideColumn + ` = 'unknown'
  AND (analysis_timestamp IS NULL OR analysis_timestamp < ?)
ORDER BY block_height DESC, id DESC
LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, cutoff, unknownSideLimit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []model.FlowEvent
	for rows.Next() {
		ev, err := scanFlowEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
