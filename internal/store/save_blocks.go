package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// SaveBlocks upserts block rows by height in one transaction.
func (s *Store) SaveBlocks(ctx context.Context, blocks []model.Block) error {
	start := time.Now()
	var err error
	defer func() {
		s.observe("save_blocks", err, start)
	}()

	if len(blocks) == 0 {
		return nil
	}

	const query = `
INSERT INTO blocks (height, hash, time, tx_count, size)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (height) DO UPDATE SET
	hash = excluded.hash,
	time = excluded.time,
	tx_count = excluded.tx_count,
	size = excluded.size`

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, prepErr := tx.PrepareContext(ctx, query)
		if prepErr != nil {
			return fmt.Errorf("prepare save blocks: %w", prepErr)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, b := range blocks {
			if _, execErr := stmt.ExecContext(ctx, b.Height, b.Hash, b.Time, b.TxCount, b.Size); execErr != nil {
				return fmt.Errorf("save block %d: %w", b.Height, execErr)
			}
		}
		return nil
	})
	return err
}
