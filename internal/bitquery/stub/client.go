// Package stub provides an in-memory bitquery.Upstream for tests.
package stub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/domain"
)

// Client implements bitquery.Upstream with canned responses.
// A non-nil error for a source takes precedence over its response.
type Client struct {
	mu       sync.Mutex
	trades   *bitquery.TradesResponse
	pools    *bitquery.PoolsResponse
	launches *bitquery.LaunchesResponse
	errs     map[domain.Source]error
	delays   map[domain.Source]time.Duration
	panics   map[domain.Source]bool

	tradeCalls  atomic.Int64
	poolCalls   atomic.Int64
	launchCalls atomic.Int64
	lastLimit   atomic.Int64
}

// NewClient creates a stub with empty responses for every source.
func NewClient() *Client {
	return &Client{
		trades:   &bitquery.TradesResponse{Solana: &bitquery.TradesSolana{}},
		pools:    &bitquery.PoolsResponse{Solana: &bitquery.PoolsSolana{}},
		launches: &bitquery.LaunchesResponse{Solana: &bitquery.LaunchesSolana{}},
		errs:     make(map[domain.Source]error),
		delays:   make(map[domain.Source]time.Duration),
		panics:   make(map[domain.Source]bool),
	}
}

// SetTrades sets the trade rows.
func (c *Client) SetTrades(rows ...bitquery.TradeRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades = &bitquery.TradesResponse{Solana: &bitquery.TradesSolana{DEXTradeByTokens: rows}}
}

// SetPools sets the pool rows.
func (c *Client) SetPools(rows ...bitquery.PoolRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools = &bitquery.PoolsResponse{Solana: &bitquery.PoolsSolana{DEXPools: rows}}
}

// SetLaunches sets the launch rows.
func (c *Client) SetLaunches(rows ...bitquery.LaunchRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launches = &bitquery.LaunchesResponse{Solana: &bitquery.LaunchesSolana{Instructions: rows}}
}

// SetError makes a source fail. A nil err clears the failure.
func (c *Client) SetError(src domain.Source, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, src)
		return
	}
	c.errs[src] = err
}

// FailAll makes every source fail with err.
func (c *Client) FailAll(err error) {
	for _, src := range domain.Precedence {
		c.SetError(src, err)
	}
}

// SetDelay delays a source's response until d elapses or ctx is done.
func (c *Client) SetDelay(src domain.Source, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[src] = d
}

// SetPanic makes a source panic when called.
func (c *Client) SetPanic(src domain.Source, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panics[src] = v
}

// Calls returns how many times each source was called.
func (c *Client) Calls() (trades, pools, launches int) {
	return int(c.tradeCalls.Load()), int(c.poolCalls.Load()), int(c.launchCalls.Load())
}

// LastLimit returns the limit passed to the last limited query.
func (c *Client) LastLimit() int {
	return int(c.lastLimit.Load())
}

func (c *Client) behavior(src domain.Source) (time.Duration, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delays[src], c.panics[src], c.errs[src]
}

func (c *Client) wait(ctx context.Context, src domain.Source) error {
	delay, shouldPanic, err := c.behavior(src)
	if shouldPanic {
		panic("stub: " + src.String() + " panicked")
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// LatestTrades returns the canned trade rows.
func (c *Client) LatestTrades(ctx context.Context, limit int) (*bitquery.TradesResponse, error) {
	c.tradeCalls.Add(1)
	c.lastLimit.Store(int64(limit))
	if err := c.wait(ctx, domain.SourceTrades); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trades, nil
}

// LiquidityPools returns the canned pool rows.
func (c *Client) LiquidityPools(ctx context.Context) (*bitquery.PoolsResponse, error) {
	c.poolCalls.Add(1)
	if err := c.wait(ctx, domain.SourcePools); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pools, nil
}

// TokenLaunches returns the canned launch rows.
func (c *Client) TokenLaunches(ctx context.Context, limit int) (*bitquery.LaunchesResponse, error) {
	c.launchCalls.Add(1)
	c.lastLimit.Store(int64(limit))
	if err := c.wait(ctx, domain.SourceLaunches); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.launches, nil
}

var _ bitquery.Upstream = (*Client)(nil)
