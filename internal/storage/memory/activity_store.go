package memory

import (
	"context"
	"sort"
	"sync"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TokenActivity // keyed by token address
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		data: make(map[string][]*domain.TokenActivity),
	}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

type activityKey struct {
	mint       string
	observedAt int64
}

// InsertBulk adds activity rows atomically. Fails entire batch on any duplicate.
func (s *ActivityStore) InsertBulk(_ context.Context, rows []*domain.TokenActivity) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[activityKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
		k := activityKey{r.TokenAddress, r.ObservedAt}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		for _, existing := range s.data[r.TokenAddress] {
			if existing.ObservedAt == r.ObservedAt {
				return storage.ErrDuplicateKey
			}
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range rows {
		cp := *r
		s.data[r.TokenAddress] = append(s.data[r.TokenAddress], &cp)
	}
	return nil
}

// GetByMint retrieves activity for a mint, ordered by observed_at DESC.
func (s *ActivityStore) GetByMint(_ context.Context, mint string, limit int) ([]*domain.TokenActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[mint]
	result := make([]*domain.TokenActivity, 0, len(rows))
	for _, r := range rows {
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt > result[j].ObservedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
