// Package aggregator implements the cache manager: it serves the current
// snapshot while fresh, and otherwise fans out to all sources, merges their
// normalized records and atomically publishes a new snapshot.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/observability"
	"launchpad-feed/internal/storage"
)

// Result is the outcome of Get.
type Result struct {
	Snapshot *domain.Snapshot

	// Cached is true when Snapshot was not produced by this call's refresh.
	Cached bool

	// Err is set when a refresh failed and the previous snapshot is served.
	Err error

	// Sources holds per-source outcomes when a refresh ran.
	Sources []SourceStatus
}

// Manager owns the process-wide cache entry. Safe for concurrent use.
type Manager struct {
	opts   Options
	logger *zap.Logger

	current atomic.Pointer[domain.Snapshot]
	group   singleflight.Group
	cycles  atomic.Int64

	mu       sync.RWMutex
	lastRun  *cycleOutcome
	lastTime time.Time
}

type cycleOutcome struct {
	snap    *domain.Snapshot
	sources []SourceStatus
	outcome string // success, partial, failure
	err     error
}

// Refresh outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
)

// New creates a Manager holding the cold snapshot.
func New(opts Options) *Manager {
	opts.setDefaults()
	m := &Manager{
		opts:   opts,
		logger: opts.Logger.Named("aggregator"),
	}
	m.current.Store(domain.EmptySnapshot())
	return m
}

// Snapshot returns the current snapshot without any freshness check.
func (m *Manager) Snapshot() *domain.Snapshot {
	return m.current.Load()
}

// Cycles returns how many refresh cycles have run.
func (m *Manager) Cycles() int64 {
	return m.cycles.Load()
}

// TTL returns the freshness window.
func (m *Manager) TTL() time.Duration {
	return m.opts.TTL
}

func (m *Manager) ready() error {
	if m.opts.Upstream == nil {
		return fmt.Errorf("%w: no upstream configured", ErrConfiguration)
	}
	if m.opts.Ready == nil {
		return nil
	}
	if err := m.opts.Ready(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// Get returns the current snapshot when fresh. Otherwise it runs one refresh
// cycle and returns the new snapshot, or the previous one tagged with the
// refresh error when every source failed. Without a previous snapshot a total
// failure returns ErrTotalRefreshFailure.
func (m *Manager) Get(ctx context.Context) (Result, error) {
	if err := m.ready(); err != nil {
		return Result{}, err
	}

	snap := m.current.Load()
	age := snap.Age(m.opts.Now())
	if age < m.opts.TTL {
		observability.RecordCacheLookup("hit", age)
		return Result{Snapshot: snap, Cached: true}, nil
	}

	if snap.IsCold() {
		observability.RecordCacheLookup("miss", age)
	} else {
		observability.RecordCacheLookup("stale", age)
	}

	out := m.refresh(ctx)
	if out.err == nil {
		return Result{Snapshot: out.snap, Cached: out.snap != nil && out.shared(), Sources: out.sources}, nil
	}

	prev := m.current.Load()
	if prev.IsCold() {
		return Result{Snapshot: prev, Sources: out.sources}, out.err
	}
	m.logger.Warn("serving stale snapshot",
		zap.Timep("last_updated", prev.LastUpdated),
		zap.Error(out.err),
	)
	return Result{Snapshot: prev, Cached: true, Err: out.err, Sources: out.sources}, nil
}

// RefreshIfStale runs a refresh cycle only when the snapshot is cold or
// stale. Reports whether a new snapshot was published.
func (m *Manager) RefreshIfStale(ctx context.Context) (bool, error) {
	if err := m.ready(); err != nil {
		return false, err
	}
	if m.current.Load().Age(m.opts.Now()) < m.opts.TTL {
		return false, nil
	}
	out := m.refresh(ctx)
	if out.err != nil {
		return false, out.err
	}
	return !out.shared(), nil
}

// Restore loads the newest persisted snapshot when the cache is cold.
func (m *Manager) Restore(ctx context.Context) error {
	if m.opts.SnapshotStore == nil {
		return nil
	}

	snap, err := m.opts.SnapshotStore.Latest(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if snap.IsCold() {
		return nil
	}
	snap.Normalize()

	cold := m.current.Load()
	if !cold.IsCold() || !m.current.CompareAndSwap(cold, snap) {
		return nil
	}
	m.logger.Info("snapshot restored",
		zap.Timep("last_updated", snap.LastUpdated),
		zap.Int("featured", len(snap.FeaturedTokens)),
	)
	return nil
}

type refreshOutcome struct {
	*cycleOutcome
	reused bool
}

// shared reports that the snapshot was already fresh when the flight ran.
func (o refreshOutcome) shared() bool {
	return o.reused
}

// refresh runs one cycle, or joins the in-flight one. The shared cycle is
// detached from the caller's cancellation so one caller giving up does not
// fail the others.
func (m *Manager) refresh(ctx context.Context) refreshOutcome {
	if !m.opts.Singleflight {
		return refreshOutcome{cycleOutcome: m.cycle(ctx)}
	}

	v, _, _ := m.group.Do("refresh", func() (any, error) {
		// A flight that finished just before this one may have published.
		if cur := m.current.Load(); cur.Age(m.opts.Now()) < m.opts.TTL {
			return refreshOutcome{cycleOutcome: &cycleOutcome{snap: cur, outcome: OutcomeSuccess}, reused: true}, nil
		}
		return refreshOutcome{cycleOutcome: m.cycle(context.WithoutCancel(ctx))}, nil
	})
	return v.(refreshOutcome)
}

// cycle fetches all sources, merges and publishes. It never panics.
func (m *Manager) cycle(ctx context.Context) *cycleOutcome {
	m.cycles.Add(1)
	start := time.Now()

	results := m.fetchAll(ctx)

	out := &cycleOutcome{sources: make([]SourceStatus, 0, len(results))}
	lists := make([][]domain.TokenRecord, len(results))
	var failed []string
	for i, r := range results {
		out.sources = append(out.sources, r.status)
		if !r.status.OK {
			failed = append(failed, r.status.Error)
			continue
		}
		lists[i] = r.records
	}

	if len(failed) == len(results) {
		out.outcome = OutcomeFailure
		out.err = fmt.Errorf("%w: %s", ErrTotalRefreshFailure, strings.Join(failed, "; "))
		observability.RecordRefresh(out.outcome, time.Since(start), 0, time.Time{})
		m.logger.Error("refresh failed", zap.Error(out.err), zap.Duration("duration", time.Since(start)))
		m.recordRun(out)
		return out
	}

	merged := Merge(lists...)
	now := m.opts.Now().UTC()
	snap := &domain.Snapshot{
		LatestTrades:   lists[0],
		LiquidityPools: lists[1],
		TokenLaunches:  lists[2],
		FeaturedTokens: Featured(merged, m.opts.FeaturedLimit),
		LastUpdated:    &now,
	}
	snap.Normalize()
	m.current.Store(snap)

	out.snap = snap
	out.outcome = OutcomeSuccess
	if len(failed) > 0 {
		out.outcome = OutcomePartial
	}
	observability.RecordRefresh(out.outcome, time.Since(start), len(snap.FeaturedTokens), now)
	m.logger.Info("snapshot published",
		zap.String("outcome", out.outcome),
		zap.Int("trades", len(snap.LatestTrades)),
		zap.Int("pools", len(snap.LiquidityPools)),
		zap.Int("launches", len(snap.TokenLaunches)),
		zap.Int("merged", len(merged)),
		zap.Int("featured", len(snap.FeaturedTokens)),
		zap.Duration("duration", time.Since(start)),
	)

	m.recordRun(out)
	m.afterPublish(ctx, snap, merged)
	return out
}

func (m *Manager) recordRun(out *cycleOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = out
	m.lastTime = m.opts.Now()
}

// afterPublish runs best-effort side effects of a new snapshot.
func (m *Manager) afterPublish(ctx context.Context, snap *domain.Snapshot, merged []domain.TokenRecord) {
	addrs := make([]string, len(merged))
	for i, r := range merged {
		addrs[i] = r.TokenAddress
	}
	observability.UpdateDistinctTokens(m.opts.Distinct.Add(addrs...))

	if m.opts.SnapshotStore != nil || m.opts.ActivityStore != nil {
		pctx, cancel := context.WithTimeout(ctx, m.opts.PersistTimeout)
		m.persist(pctx, snap, merged)
		cancel()
	}

	for _, l := range m.opts.Listeners {
		l.SnapshotPublished(snap)
	}
}

func (m *Manager) persist(ctx context.Context, snap *domain.Snapshot, merged []domain.TokenRecord) {
	if store := m.opts.SnapshotStore; store != nil {
		if err := store.Save(ctx, snap); err != nil {
			observability.RecordPersistError("snapshots")
			m.logger.Warn("persist snapshot", zap.Error(err))
		}
	}

	if store := m.opts.ActivityStore; store != nil && len(merged) > 0 {
		rows := make([]*domain.TokenActivity, len(merged))
		for i, r := range merged {
			rows[i] = domain.NewTokenActivity(r, *snap.LastUpdated)
		}
		if err := store.InsertBulk(ctx, rows); err != nil {
			observability.RecordPersistError("activity")
			m.logger.Warn("persist activity", zap.Error(err), zap.Int("rows", len(rows)))
		}
	}
}
