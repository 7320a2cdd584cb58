package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Snapshots are stored whole as JSONB; counts are kept for inspection.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Save appends a snapshot. Returns ErrDuplicateKey if last_updated exists.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.IsCold() {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO cache_snapshots (
			last_updated, trades_count, pools_count, launches_count, featured_count, payload
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		*snap.LastUpdated,
		len(snap.LatestTrades),
		len(snap.LiquidityPools),
		len(snap.TokenLaunches),
		len(snap.FeaturedTokens),
		payload,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot. Returns ErrNotFound if empty.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query := `
		SELECT payload
		FROM cache_snapshots
		ORDER BY last_updated DESC
		LIMIT 1
	`

	var payload []byte
	if err := s.pool.QueryRow(ctx, query).Scan(&payload); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	snap.Normalize()
	return &snap, nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cache_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
