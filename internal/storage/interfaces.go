package storage

import (
	"context"

	"launchpad-feed/internal/domain"
)

// SnapshotStore persists published cache snapshots. The log is append-only;
// Latest serves restore-on-start and cross-instance sharing.
type SnapshotStore interface {
	// Save appends a snapshot. Returns ErrInvalidInput for a cold snapshot and
	// ErrDuplicateKey if a snapshot with the same LastUpdated exists.
	Save(ctx context.Context, s *domain.Snapshot) error

	// Latest returns the snapshot with the greatest LastUpdated.
	// Returns ErrNotFound if no snapshot was saved.
	Latest(ctx context.Context) (*domain.Snapshot, error)
}

// ActivityStore provides access to token_activity storage.
type ActivityStore interface {
	// InsertBulk adds activity rows of one refresh cycle.
	// Fails entire batch on duplicate (token_address, observed_at).
	InsertBulk(ctx context.Context, rows []*domain.TokenActivity) error

	// GetByMint retrieves activity for a mint, newest observation first.
	// limit <= 0 returns all rows.
	GetByMint(ctx context.Context, mint string, limit int) ([]*domain.TokenActivity, error)
}
