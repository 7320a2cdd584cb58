package aggregator

import (
	"time"

	"launchpad-feed/internal/domain"
)

// MaxLimit caps the per-list limit accepted by Project.
const MaxLimit = 100

// View is the action=all projection.
type View struct {
	LatestTrades   []domain.TokenRecord `json:"latestTrades"`
	LiquidityPools []domain.TokenRecord `json:"liquidityPools"`
	TokenLaunches  []domain.TokenRecord `json:"tokenLaunches"`
	FeaturedTokens []domain.TokenRecord `json:"featuredTokens"`
	LastUpdated    *time.Time           `json:"lastUpdated"`
}

// Project selects the lists requested by action from snap. limit <= 0 keeps
// whole lists, otherwise each list is capped at min(limit, MaxLimit).
// The result shares memory with snap and must not be modified.
func Project(snap *domain.Snapshot, action domain.Action, limit int) any {
	if snap == nil {
		snap = domain.EmptySnapshot()
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	switch action {
	case domain.ActionTrades:
		return head(snap.LatestTrades, limit)
	case domain.ActionPools:
		return head(snap.LiquidityPools, limit)
	case domain.ActionLaunches:
		return head(snap.TokenLaunches, limit)
	case domain.ActionFeatured:
		return head(snap.FeaturedTokens, limit)
	default:
		return View{
			LatestTrades:   head(snap.LatestTrades, limit),
			LiquidityPools: head(snap.LiquidityPools, limit),
			TokenLaunches:  head(snap.TokenLaunches, limit),
			FeaturedTokens: head(snap.FeaturedTokens, limit),
			LastUpdated:    snap.LastUpdated,
		}
	}
}

func head(l []domain.TokenRecord, limit int) []domain.TokenRecord {
	if l == nil {
		return []domain.TokenRecord{}
	}
	if limit > 0 && len(l) > limit {
		return l[:limit:limit]
	}
	return l
}
