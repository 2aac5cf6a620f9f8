package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// SaveFlowEventsBatch commits all events in a single atomic transaction.
// Per-event transactions are not acceptable here: the pipeline writes hundreds
// of events per batch and would otherwise contend with the enhancement engine
// row by row. On a (txid, vout) conflict the last write wins.
func (s *Store) SaveFlowEventsBatch(ctx context.Context, events []model.FlowEvent) error {
	start := time.Now()
	var err error
	defer func() {
		s.observe("save_flow_events_batch", err, start)
	}()

	if len(events) == 0 {
		return nil
	}

	const query = `
INSERT INTO flow_events (
	txid, vout, block_height, block_time,
	from_address, from_type, from_details,
	to_address, to_type, to_details,
	flow_type, amount,
	classification_level, intermediary_wallet, hop_chain, analysis_timestamp, data_source
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (txid, vout) DO UPDATE SET
	block_height = excluded.block_height,
	block_time = excluded.block_time,
	from_address = excluded.from_address,
	from_type = excluded.from_type,
	from_details = excluded.from_details,
	to_address = excluded.to_address,
	to_type = excluded.to_type,
	to_details = excluded.to_details,
	flow_type = excluded.flow_type,
	amount = excluded.amount,
	classification_level = excluded.classification_level,
	intermediary_wallet = excluded.intermediary_wallet,
	hop_chain = excluded.hop_chain,
	analysis_timestamp = excluded.analysis_timestamp,
	data_source = excluded.data_source`

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, prepErr := tx.PrepareContext(ctx, query)
		if prepErr != nil {
			return fmt.Errorf("prepare save flow events: %w", prepErr)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, ev := range events {
			fromDetails, encErr := encodeDetails(ev.FromDetails)
			if encErr != nil {
				return fmt.Errorf("event %s:%d: %w", ev.TxID, ev.Vout, encErr)
			}
			toDetails, encErr := encodeDetails(ev.ToDetails)
			if encErr != nil {
				return fmt.Errorf("event %s:%d: %w", ev.TxID, ev.Vout, encErr)
			}
			hopChain, encErr := encodeHopChain(ev.HopChain)
			if encErr != nil {
				return fmt.Errorf("event %s:%d: %w", ev.TxID, ev.Vout, encErr)
			}

			var intermediary, analysisTS any
			if ev.IntermediaryWallet != nil {
				intermediary = *ev.IntermediaryWallet
			}
			if ev.AnalysisTimestamp != nil {
				analysisTS = *ev.AnalysisTimestamp
			}

			if _, execErr := stmt.ExecContext(ctx,
				ev.TxID,
				ev.Vout,
				ev.BlockHeight,
				ev.BlockTime,
				ev.FromAddress,
				string(ev.FromType),
				fromDetails,
				ev.ToAddress,
				string(ev.ToType),
				toDetails,
				string(ev.FlowType),
				ev.Amount.String(),
				ev.ClassificationLevel,
				intermediary,
				hopChain,
				analysisTS,
				string(ev.DataSource),
			); execErr != nil {
				return fmt.Errorf("save flow event %s:%d: %w", ev.TxID, ev.Vout, execErr)
			}
		}
		return nil
	})
	return err
}
