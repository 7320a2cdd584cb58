package memory

import (
	"context"
	"sync"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	data   []*domain.Snapshot
	byTime map[int64]struct{}
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		byTime: make(map[int64]struct{}),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Save appends a snapshot. Returns ErrDuplicateKey if LastUpdated exists.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.Snapshot) error {
	if snap.IsCold() {
		return storage.ErrInvalidInput
	}

	key := snap.LastUpdated.UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTime[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.byTime[key] = struct{}{}
	s.data = append(s.data, cloneSnapshot(snap))
	return nil
}

// Latest returns the snapshot with the greatest LastUpdated.
func (s *SnapshotStore) Latest(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Snapshot
	for _, snap := range s.data {
		if latest == nil || snap.LastUpdated.After(*latest.LastUpdated) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(latest), nil
}

// Count returns the number of saved snapshots.
func (s *SnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func cloneSnapshot(snap *domain.Snapshot) *domain.Snapshot {
	ts := *snap.LastUpdated
	out := &domain.Snapshot{
		LatestTrades:   cloneRecords(snap.LatestTrades),
		LiquidityPools: cloneRecords(snap.LiquidityPools),
		TokenLaunches:  cloneRecords(snap.TokenLaunches),
		FeaturedTokens: cloneRecords(snap.FeaturedTokens),
		LastUpdated:    &ts,
	}
	return out
}

func cloneRecords(in []domain.TokenRecord) []domain.TokenRecord {
	out := make([]domain.TokenRecord, len(in))
	copy(out, in)
	return out
}
