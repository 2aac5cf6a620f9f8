package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSyncState reads one scheduler checkpoint value.
func (s *Store) GetSyncState(ctx context.Context, key string) (value string, found bool, err error) {
	start := time.Now()
	defer func() {
		s.observe("get_sync_state", err, start)
	}()

	err = s.db.QueryRowContext(ctx, "SELECT value FROM sync_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get sync state %q: %w", key, err)
	}
	return value, true, nil
}

// SetSyncState upserts one scheduler checkpoint value.
func (s *Store) SetSyncState(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() {
		s.observe("set_sync_state", err, start)
	}()

	_, err = s.db.ExecContext(ctx, `
INSERT INTO sync_state (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set sync state %q: %w", key, err)
	}
	return nil
}
