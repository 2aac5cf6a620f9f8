package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// SaveTransactions upserts transaction rows by txid in one transaction.
func (s *Store) SaveTransactions(ctx context.Context, txs []model.Transaction) error {
	start := time.Now()
	var err error
	defer func() {
		s.observe("save_transactions", err, start)
	}()

	if len(txs) == 0 {
		return nil
	}

	const query = `
INSERT INTO transactions (txid, block_height, time, input_count, output_count, input_value, output_value)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (txid) DO UPDATE SET
	block_height = excluded.block_height,
	time = excluded.time,
	input_count = excluded.input_count,
	output_count = excluded.output_count,
	input_value = excluded.input_value,
	output_value = excluded.output_value`

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, prepErr := tx.PrepareContext(ctx, query)
		if prepErr != nil {
			return fmt.Errorf("prepare save transactions: %w", prepErr)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, t := range txs {
			if _, execErr := stmt.ExecContext(ctx,
				t.TxID,
				t.BlockHeight,
				t.Time,
				t.InputCount,
				t.OutputCount,
				t.InputValue.String(),
				t.OutputValue.String(),
			); execErr != nil {
				return fmt.Errorf("save transaction %s: %w", t.TxID, execErr)
			}
		}
		return nil
	})
	return err
}
