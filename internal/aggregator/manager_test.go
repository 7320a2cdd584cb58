package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/bitquery/stub"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage/memory"
)

const (
	mintM1 = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	mintM2 = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	mintM3 = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

var t0 = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mintN returns a distinct valid address for i.
func mintN(i int) string {
	b := make([]byte, 32)
	b[0] = byte(i)
	b[1] = byte(i >> 8)
	b[31] = 1
	return base58.Encode(b)
}

func healthyStub() *stub.Client {
	up := stub.NewClient()
	up.SetTrades(
		stub.TradeRow("sigT1", mintM1, "Bonk", "BONK", 0.00002, 12.5, t0.Add(-1*time.Minute)),
		stub.TradeRow("sigT2", mintM2, "Jupiter", "JUP", 0.9, 100, t0.Add(-2*time.Minute)),
	)
	up.SetPools(stub.PoolRow("market3", mintM3, "USD Coin", "USDC", 500, 500, t0.Add(-30*time.Second)))
	up.SetLaunches(stub.LaunchRow("sigL1", mintM1, "Bonk Launch", "BONKL", t0.Add(-10*time.Second)))
	return up
}

func newTestManager(t *testing.T, up bitquery.Upstream, mutate ...func(*Options)) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	opts := Options{
		Upstream:      up,
		Ready:         func() error { return nil },
		SourceTimeout: time.Second,
		Singleflight:  true,
		Now:           clock.Now,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	return New(opts), clock
}

func addresses(records []domain.TokenRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.TokenAddress
	}
	return out
}

func assertCalls(t *testing.T, up *stub.Client, want int) {
	t.Helper()
	trades, pools, launches := up.Calls()
	assert.Equal(t, want, trades, "trades calls")
	assert.Equal(t, want, pools, "pools calls")
	assert.Equal(t, want, launches, "launches calls")
}

func TestGet_ColdStartRunsExactlyOneCycle(t *testing.T) {
	up := healthyStub()
	m, _ := newTestManager(t, up)

	require.True(t, m.Snapshot().IsCold())

	res, err := m.Get(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.NoError(t, res.Err)
	assertCalls(t, up, 1)
	assert.Equal(t, int64(1), m.Cycles())
	require.NotNil(t, res.Snapshot.LastUpdated)
	assert.True(t, res.Snapshot.LastUpdated.Equal(t0))
	assert.Equal(t, DefaultSourceLimit, up.LastLimit())
}

func TestGet_ColdStartConcurrentRequestsShareOneCycle(t *testing.T) {
	up := healthyStub()
	up.SetDelay(domain.SourceTrades, 100*time.Millisecond)
	m, _ := newTestManager(t, up)

	const n = 20
	results := make([]Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.Get(context.Background())
		}()
	}
	wg.Wait()

	assertCalls(t, up, 1)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0].Snapshot, results[i].Snapshot)
	}
}

func TestGet_FreshWindowServesIdenticalDataWithoutIO(t *testing.T) {
	up := healthyStub()
	m, clock := newTestManager(t, up)
	ctx := context.Background()

	first, err := m.Get(ctx)
	require.NoError(t, err)

	// Upstream changes must not be visible inside the window.
	up.SetTrades()
	clock.Advance(DefaultTTL - time.Second)

	second, err := m.Get(ctx)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Nil(t, second.Sources)
	assertCalls(t, up, 1)

	for _, action := range []domain.Action{domain.ActionAll, domain.ActionTrades, domain.ActionPools, domain.ActionLaunches, domain.ActionFeatured} {
		a, err := json.Marshal(Project(first.Snapshot, action, 0))
		require.NoError(t, err)
		b, err := json.Marshal(Project(second.Snapshot, action, 0))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), "action %s", action)
	}
}

func TestGet_StaleTriggersRefresh(t *testing.T) {
	up := healthyStub()
	m, clock := newTestManager(t, up)
	ctx := context.Background()

	_, err := m.Get(ctx)
	require.NoError(t, err)

	clock.Advance(DefaultTTL)
	res, err := m.Get(ctx)
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assertCalls(t, up, 2)
	assert.True(t, res.Snapshot.LastUpdated.Equal(t0.Add(DefaultTTL)))
	assert.Len(t, res.Sources, 3)
}

func TestGet_AllSourcesHealthyScenario(t *testing.T) {
	m, _ := newTestManager(t, healthyStub())

	res, err := m.Get(context.Background())
	require.NoError(t, err)

	featured := res.Snapshot.FeaturedTokens
	require.Len(t, featured, 3)
	assert.ElementsMatch(t, []string{mintM1, mintM2, mintM3}, addresses(featured))

	// Sorted by lastActivity: M3 (-30s), M1 (-1m), M2 (-2m).
	assert.Equal(t, []string{mintM3, mintM1, mintM2}, addresses(featured))

	for _, r := range featured {
		switch r.TokenAddress {
		case mintM1:
			assert.Equal(t, domain.TokenTypeTrading, r.Type)
			assert.Equal(t, "sigT1", r.ID)
			assert.Equal(t, "Bonk", r.TokenName)
		case mintM2:
			assert.Equal(t, domain.TokenTypeTrading, r.Type)
		case mintM3:
			assert.Equal(t, domain.TokenTypeLiquidity, r.Type)
			assert.Equal(t, 1000.0, r.LiquidityUSD)
		}
	}

	assert.Len(t, res.Snapshot.LatestTrades, 2)
	assert.Len(t, res.Snapshot.LiquidityPools, 1)
	require.Len(t, res.Snapshot.TokenLaunches, 1)
	assert.Equal(t, domain.TokenTypeLaunch, res.Snapshot.TokenLaunches[0].Type)
}

func TestGet_DedupPrefersTradeRecord(t *testing.T) {
	up := stub.NewClient()
	up.SetTrades(stub.TradeRow("sigT", mintM1, "FromTrades", "T", 1, 1, t0.Add(-time.Hour)))
	up.SetPools(stub.PoolRow("market", mintM1, "FromPools", "P", 1, 1, t0))
	m, _ := newTestManager(t, up)

	res, err := m.Get(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Snapshot.FeaturedTokens, 1)
	r := res.Snapshot.FeaturedTokens[0]
	assert.Equal(t, "FromTrades", r.TokenName)
	assert.Equal(t, domain.TokenTypeTrading, r.Type)
	assert.True(t, r.LastActivity.Equal(t0.Add(-time.Hour)))
}

func TestGet_PartialFailureTolerated(t *testing.T) {
	up := healthyStub()
	up.SetError(domain.SourcePools, &bitquery.SourceError{Source: domain.SourcePools, Kind: bitquery.KindHTTPStatus, Status: 502, Err: errors.New("bad gateway")})
	m, _ := newTestManager(t, up)

	res, err := m.Get(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.NoError(t, res.Err)
	assert.ElementsMatch(t, []string{mintM1, mintM2}, addresses(res.Snapshot.FeaturedTokens))
	assert.Empty(t, res.Snapshot.LiquidityPools)
	assert.NotNil(t, res.Snapshot.LiquidityPools)
	assert.Len(t, res.Snapshot.TokenLaunches, 1)

	require.Len(t, res.Sources, 3)
	pools := res.Sources[1]
	assert.Equal(t, domain.SourcePools, pools.Source)
	assert.False(t, pools.OK)
	assert.Equal(t, bitquery.KindHTTPStatus, pools.Kind)
	assert.NotEmpty(t, pools.Error)
	assert.Error(t, pools.Err())
	assert.True(t, res.Sources[0].OK)
	assert.True(t, res.Sources[2].OK)

	st := m.Status()
	assert.Equal(t, OutcomePartial, st.LastOutcome)
}

func TestGet_WarmOutageServesStale(t *testing.T) {
	up := healthyStub()
	m, clock := newTestManager(t, up)
	ctx := context.Background()

	first, err := m.Get(ctx)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	up.FailAll(errors.New("upstream down"))

	res, err := m.Get(ctx)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrTotalRefreshFailure)
	assert.NotEmpty(t, res.Err.Error())
	assert.Same(t, first.Snapshot, res.Snapshot)
	assert.True(t, res.Snapshot.LastUpdated.Equal(t0))
	assertCalls(t, up, 2)

	for _, s := range res.Sources {
		assert.False(t, s.OK)
		assert.Equal(t, bitquery.KindNetwork, s.Kind)
	}
	assert.Equal(t, StateStale, m.Status().State)
	assert.Equal(t, OutcomeFailure, m.Status().LastOutcome)
}

func TestGet_ColdOutageFails(t *testing.T) {
	up := stub.NewClient()
	up.FailAll(errors.New("upstream down"))
	m, _ := newTestManager(t, up)

	res, err := m.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTotalRefreshFailure)
	assert.True(t, res.Snapshot.IsCold())
	assert.Len(t, res.Sources, 3)
	assert.True(t, m.Snapshot().IsCold())
}

func TestGet_ConfigurationErrorFailsClosed(t *testing.T) {
	up := healthyStub()
	m, _ := newTestManager(t, up, func(o *Options) {
		o.Ready = func() error { return bitquery.ErrMissingAPIKey }
	})

	_, err := m.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, bitquery.ErrMissingAPIKey)
	assertCalls(t, up, 0)
	assert.Equal(t, int64(0), m.Cycles())
}

func TestGet_ReadinessFromHTTPClient(t *testing.T) {
	m := New(Options{Upstream: bitquery.NewHTTPClient(bitquery.DefaultEndpoint, "")})

	_, err := m.Get(context.Background())
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, bitquery.ErrMissingAPIKey)

	_, err = New(Options{}).Get(context.Background())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestGet_SourceTimeout(t *testing.T) {
	up := healthyStub()
	up.SetDelay(domain.SourcePools, 5*time.Second)
	m, _ := newTestManager(t, up, func(o *Options) {
		o.SourceTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	res, err := m.Get(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, bitquery.KindTimeout, res.Sources[1].Kind)
	assert.ElementsMatch(t, []string{mintM1, mintM2}, addresses(res.Snapshot.FeaturedTokens))
}

// blockingUpstream ignores ctx and never returns for pools.
type blockingUpstream struct {
	*stub.Client
	release chan struct{}
}

func (b *blockingUpstream) LiquidityPools(context.Context) (*bitquery.PoolsResponse, error) {
	<-b.release
	return nil, errors.New("released")
}

func TestGet_TimeoutBoundsUncooperativeUpstream(t *testing.T) {
	up := &blockingUpstream{Client: healthyStub(), release: make(chan struct{})}
	defer close(up.release)
	m, _ := newTestManager(t, up, func(o *Options) {
		o.SourceTimeout = 50 * time.Millisecond
	})

	res, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bitquery.KindTimeout, res.Sources[1].Kind)
	assert.Len(t, res.Snapshot.LatestTrades, 2)
}

func TestGet_SourcePanicIsIsolated(t *testing.T) {
	up := healthyStub()
	up.SetPanic(domain.SourceLaunches, true)
	m, _ := newTestManager(t, up)

	res, err := m.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, bitquery.KindPanic, res.Sources[2].Kind)
	assert.Empty(t, res.Snapshot.TokenLaunches)
	assert.Len(t, res.Snapshot.FeaturedTokens, 3)
}

func TestGet_FeaturedTruncation(t *testing.T) {
	up := stub.NewClient()
	var rows []bitquery.TradeRow
	for i := 0; i < 30; i++ {
		rows = append(rows, stub.TradeRow("sig", mintN(i), "T", "T", 1, 1, t0.Add(-time.Duration(i*7%30)*time.Minute)))
	}
	up.SetTrades(rows...)
	m, _ := newTestManager(t, up)

	res, err := m.Get(context.Background())
	require.NoError(t, err)

	featured := res.Snapshot.FeaturedTokens
	require.Len(t, featured, DefaultFeaturedLimit)
	for i := 1; i < len(featured); i++ {
		assert.False(t, featured[i].LastActivity.After(featured[i-1].LastActivity), "not sorted at %d", i)
	}
	assert.Len(t, res.Snapshot.LatestTrades, 30)
}

func TestGet_SharedRefreshSurvivesCallerCancel(t *testing.T) {
	up := healthyStub()
	m, _ := newTestManager(t, up)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Snapshot.FeaturedTokens, 3)
}

func TestGet_WithoutSingleflight(t *testing.T) {
	up := healthyStub()
	m, _ := newTestManager(t, up, func(o *Options) { o.Singleflight = false })

	res, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assertCalls(t, up, 1)
}

func TestRefreshIfStale(t *testing.T) {
	up := healthyStub()
	m, clock := newTestManager(t, up)
	ctx := context.Background()

	refreshed, err := m.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed)

	refreshed, err = m.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assertCalls(t, up, 1)

	clock.Advance(DefaultTTL)
	up.FailAll(errors.New("down"))
	refreshed, err = m.RefreshIfStale(ctx)
	assert.ErrorIs(t, err, ErrTotalRefreshFailure)
	assert.False(t, refreshed)
}

func TestPersistenceAndRestore(t *testing.T) {
	snapshots := memory.NewSnapshotStore()
	activity := memory.NewActivityStore()
	up := healthyStub()

	var published []*domain.Snapshot
	m, _ := newTestManager(t, up, func(o *Options) {
		o.SnapshotStore = snapshots
		o.ActivityStore = activity
		o.Listeners = []Listener{ListenerFunc(func(s *domain.Snapshot) { published = append(published, s) })}
	})
	ctx := context.Background()

	res, err := m.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, snapshots.Count())
	require.Len(t, published, 1)
	assert.Same(t, res.Snapshot, published[0])

	rows, err := activity.GetByMint(ctx, mintM1, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.TokenTypeTrading, rows[0].Type)
	assert.Equal(t, t0.UnixMilli(), rows[0].ObservedAt)
	assert.GreaterOrEqual(t, m.Status().DistinctTokens, uint64(3))

	// A new process restores the snapshot and serves it without I/O.
	up2 := healthyStub()
	m2, _ := newTestManager(t, up2, func(o *Options) { o.SnapshotStore = snapshots })
	require.NoError(t, m2.Restore(ctx))

	res2, err := m2.Get(ctx)
	require.NoError(t, err)
	assert.True(t, res2.Cached)
	assertCalls(t, up2, 0)
	assert.Equal(t, addresses(res.Snapshot.FeaturedTokens), addresses(res2.Snapshot.FeaturedTokens))
}

func TestRestore_EmptyStore(t *testing.T) {
	m, _ := newTestManager(t, healthyStub(), func(o *Options) { o.SnapshotStore = memory.NewSnapshotStore() })
	require.NoError(t, m.Restore(context.Background()))
	assert.True(t, m.Snapshot().IsCold())

	m2, _ := newTestManager(t, healthyStub())
	require.NoError(t, m2.Restore(context.Background()))
}

func TestStatus(t *testing.T) {
	m, clock := newTestManager(t, healthyStub())

	st := m.Status()
	assert.Equal(t, StateCold, st.State)
	assert.Nil(t, st.LastUpdated)
	assert.Empty(t, st.LastOutcome)

	_, err := m.Get(context.Background())
	require.NoError(t, err)

	st = m.Status()
	assert.Equal(t, StateFresh, st.State)
	assert.Equal(t, OutcomeSuccess, st.LastOutcome)
	assert.Equal(t, 3, st.Featured)
	assert.Len(t, st.Sources, 3)

	clock.Advance(DefaultTTL + time.Second)
	assert.Equal(t, StateStale, m.Status().State)
}
