package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// GetFlowEvents returns all flow events with block_height in [low, high],
// newest first.
func (s *Store) GetFlowEvents(ctx context.Context, low, high uint64) ([]model.FlowEvent, error) {
	start := time.Now()
	var err error
	defer func() {
		s.observe("get_flow_events", err, start)
	}()

	query := `
SELECT ` + flowEventColumns + `
FROM flow_events
WHERE block_height >= ? AND block_height <= ?
ORDER BY block_height DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, low, high)
	if err != nil {
		return nil, fmt.Errorf("query flow events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	var events []model.FlowEvent
	for rows.Next() {
		ev, scanErr := scanFlowEvent(rows.Scan)
		if scanErr != nil {
			err = fmt.Errorf("scan flow event: %w", scanErr)
			return nil, err
		}
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow events: %w", err)
	}
	return events, nil
}
