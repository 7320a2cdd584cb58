package aggregator

import (
	"time"
)

// Cache states.
const (
	StateCold  = "cold"
	StateFresh = "fresh"
	StateStale = "stale"
)

// Status describes the cache for operational endpoints.
type Status struct {
	State          string         `json:"state"`
	LastUpdated    *time.Time     `json:"lastUpdated"`
	AgeSeconds     float64        `json:"ageSeconds,omitempty"`
	TTLSeconds     float64        `json:"ttlSeconds"`
	Cycles         int64          `json:"cycles"`
	LastOutcome    string         `json:"lastOutcome,omitempty"`
	LastRefreshAt  *time.Time     `json:"lastRefreshAt,omitempty"`
	LastError      string         `json:"lastError,omitempty"`
	Sources        []SourceStatus `json:"sources,omitempty"`
	Featured       int            `json:"featured"`
	DistinctTokens uint64         `json:"distinctTokens"`
}

// Status returns a point-in-time view of the cache. It performs no I/O.
func (m *Manager) Status() Status {
	now := m.opts.Now()
	snap := m.current.Load()

	st := Status{
		State:          StateCold,
		LastUpdated:    snap.LastUpdated,
		TTLSeconds:     m.opts.TTL.Seconds(),
		Cycles:         m.cycles.Load(),
		Featured:       len(snap.FeaturedTokens),
		DistinctTokens: m.opts.Distinct.Estimate(),
	}
	if !snap.IsCold() {
		age := snap.Age(now)
		st.AgeSeconds = age.Seconds()
		st.State = StateFresh
		if age >= m.opts.TTL {
			st.State = StateStale
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if run := m.lastRun; run != nil {
		at := m.lastTime
		st.LastOutcome = run.outcome
		st.LastRefreshAt = &at
		st.Sources = run.sources
		if run.err != nil {
			st.LastError = run.err.Error()
		}
	}
	return st
}
