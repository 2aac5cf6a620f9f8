package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MaxBlockHeight returns the highest stored block height. found is false when
// the blocks table is empty.
func (s *Store) MaxBlockHeight(ctx context.Context) (height uint64, found bool, err error) {
	start := time.Now()
	defer func() {
		s.observe("max_block_height", err, start)
	}()
	return s.boundaryHeight(ctx, "SELECT max(height) FROM blocks")
}

// MinBlockHeight returns the lowest stored block height.
func (s *Store) MinBlockHeight(ctx context.Context) (height uint64, found bool, err error) {
	start := time.Now()
	defer func() {
		s.observe("min_block_height", err, start)
	}()
	return s.boundaryHeight(ctx, "SELECT min(height) FROM blocks")
}

func (s *Store) boundaryHeight(ctx context.Context, query string) (uint64, bool, error) {
	var height sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query).Scan(&height); err != nil {
		return 0, false, fmt.Errorf("query boundary height: %w", err)
	}
	if !height.Valid || height.Int64 < 0 {
		return 0, false, nil
	}
	return uint64(height.Int64), true, nil
}

// BlockCount returns the number of stored blocks.
func (s *Store) BlockCount(ctx context.Context) (count uint64, err error) {
	start := time.Now()
	defer func() {
		s.observe("block_count", err, start)
	}()

	if err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM blocks").Scan(&count); err != nil {
		return 0, fmt.Errorf("query block count: %w", err)
	}
	return count, nil
}
