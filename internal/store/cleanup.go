package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CleanupOldData transactionally deletes flow events, transactions, and
// blocks below the retention window, then compacts the database file.
func (s *Store) CleanupOldData(ctx context.Context, currentBlock, windowBlocks uint64) error {
	start := time.Now()
	var err error
	defer func() {
		s.observe("cleanup_old_data", err, start)
	}()

	if currentBlock <= windowBlocks {
		return nil
	}
	cutoff := currentBlock - windowBlocks

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []struct {
			name  string
			query string
		}{
			{"flow_events", "DELETE FROM flow_events WHERE block_height < ?"},
			{"transactions", "DELETE FROM transactions WHERE block_height < ?"},
			{"blocks", "DELETE FROM blocks WHERE height < ?"},
		} {
			res, execErr := tx.ExecContext(ctx, stmt.query, cutoff)
			if execErr != nil {
				return fmt.Errorf("delete old %s: %w", stmt.name, execErr)
			}
			if deleted, raErr := res.RowsAffected(); raErr == nil && deleted > 0 {
				s.logger.Info("retention sweep deleted rows",
					zap.String("table", stmt.name),
					zap.Int64("rows", deleted),
					zap.Uint64("cutoff", cutoff),
				)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// VACUUM cannot run inside a transaction.
	if _, vacErr := s.db.ExecContext(ctx, "VACUUM"); vacErr != nil {
		s.logger.Warn("vacuum after cleanup failed", zap.Error(vacErr))
	}
	return nil
}
