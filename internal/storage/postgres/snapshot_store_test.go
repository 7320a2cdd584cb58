package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage"
)

func testSnapshot(ts time.Time, mint string) *domain.Snapshot {
	rec := domain.TokenRecord{
		ID:           "sig-" + mint,
		TokenAddress: mint,
		TokenName:    "Bonk",
		TokenSymbol:  "BONK",
		PriceUSD:     0.00002,
		Timestamp:    ts,
		LastActivity: ts,
		Type:         domain.TokenTypeTrading,
		TradeType:    "buy",
	}
	s := domain.EmptySnapshot()
	s.LatestTrades = []domain.TokenRecord{rec}
	s.FeaturedTokens = []domain.TokenRecord{rec}
	s.LastUpdated = &ts
	return s
}

func TestSnapshotStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(pool)
	ctx := context.Background()
	t0 := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("latest on empty store", func(t *testing.T) {
		_, err := store.Latest(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("cold snapshot rejected", func(t *testing.T) {
		err := store.Save(ctx, domain.EmptySnapshot())
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	})

	t.Run("save and latest", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, testSnapshot(t0.Add(time.Minute), "mintB")))
		require.NoError(t, store.Save(ctx, testSnapshot(t0, "mintA")))

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest.LastUpdated)
		assert.True(t, latest.LastUpdated.Equal(t0.Add(time.Minute)))
		require.Len(t, latest.LatestTrades, 1)
		assert.Equal(t, "mintB", latest.LatestTrades[0].TokenAddress)
		assert.Equal(t, "buy", latest.LatestTrades[0].TradeType)
		assert.NotNil(t, latest.LiquidityPools)
		assert.Empty(t, latest.TokenLaunches)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("duplicate last_updated", func(t *testing.T) {
		err := store.Save(ctx, testSnapshot(t0, "mintC"))
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("updates rejected", func(t *testing.T) {
		_, err := pool.Exec(ctx, `UPDATE cache_snapshots SET featured_count = 0`)
		assert.Error(t, err)
	})
}
