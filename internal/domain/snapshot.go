package domain

import (
	"math"
	"time"
)

// Snapshot is the cache entry. All four lists come from the same refresh
// cycle; a snapshot is never mutated after it is published.
// LastUpdated is nil only for the cold (never populated) snapshot.
type Snapshot struct {
	LatestTrades   []TokenRecord `json:"latestTrades"`
	LiquidityPools []TokenRecord `json:"liquidityPools"`
	TokenLaunches  []TokenRecord `json:"tokenLaunches"`
	FeaturedTokens []TokenRecord `json:"featuredTokens"`
	LastUpdated    *time.Time    `json:"lastUpdated"`
}

// EmptySnapshot returns the cold-start snapshot.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		LatestTrades:   []TokenRecord{},
		LiquidityPools: []TokenRecord{},
		TokenLaunches:  []TokenRecord{},
		FeaturedTokens: []TokenRecord{},
	}
}

// IsCold reports whether the snapshot was never populated.
func (s *Snapshot) IsCold() bool {
	return s == nil || s.LastUpdated == nil
}

// Age returns the snapshot age at now. A cold snapshot has infinite age.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s.IsCold() {
		return time.Duration(math.MaxInt64)
	}
	return now.Sub(*s.LastUpdated)
}

// Records returns the list for a source.
func (s *Snapshot) Records(src Source) []TokenRecord {
	switch src {
	case SourceTrades:
		return s.LatestTrades
	case SourcePools:
		return s.LiquidityPools
	case SourceLaunches:
		return s.TokenLaunches
	default:
		return nil
	}
}

// Normalize replaces nil lists with empty ones so JSON encodes [] not null.
func (s *Snapshot) Normalize() {
	if s.LatestTrades == nil {
		s.LatestTrades = []TokenRecord{}
	}
	if s.LiquidityPools == nil {
		s.LiquidityPools = []TokenRecord{}
	}
	if s.TokenLaunches == nil {
		s.TokenLaunches = []TokenRecord{}
	}
	if s.FeaturedTokens == nil {
		s.FeaturedTokens = []TokenRecord{}
	}
}
