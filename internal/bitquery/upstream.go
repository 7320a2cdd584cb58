package bitquery

import "context"

// Upstream is the set of source queries the aggregator fans out to.
type Upstream interface {
	// LatestTrades returns the latest launchpad trades, newest first.
	LatestTrades(ctx context.Context, limit int) (*TradesResponse, error)

	// LiquidityPools returns the most recently updated launchpad pools.
	LiquidityPools(ctx context.Context) (*PoolsResponse, error)

	// TokenLaunches returns the latest token-launch instructions.
	TokenLaunches(ctx context.Context, limit int) (*LaunchesResponse, error)
}

var _ Upstream = (*HTTPClient)(nil)
