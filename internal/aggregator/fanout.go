package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/normalization"
	"launchpad-feed/internal/observability"
)

// SourceStatus is the outcome of one source call within a refresh cycle.
type SourceStatus struct {
	Source   domain.Source `json:"source"`
	OK       bool          `json:"ok"`
	Kind     bitquery.Kind `json:"kind,omitempty"`
	Error    string        `json:"error,omitempty"`
	Records  int           `json:"records"`
	Dropped  int           `json:"dropped"`
	Duration time.Duration `json:"durationNs"`

	err error
}

// Err returns the source failure, nil on success.
func (s SourceStatus) Err() error {
	return s.err
}

type fetchResult struct {
	records []domain.TokenRecord
	status  SourceStatus
}

// fetchAll calls every source concurrently and waits for all of them.
// A failing source never affects the others. Results are in precedence order.
func (m *Manager) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(domain.Precedence))

	var wg sync.WaitGroup
	for i, src := range domain.Precedence {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.fetch(ctx, src)
		}()
	}
	wg.Wait()

	return results
}

// fetch runs one source call bounded by the source timeout. The call runs
// in its own goroutine so an upstream that ignores ctx still cannot stall
// the cycle past the deadline.
func (m *Manager) fetch(parent context.Context, src domain.Source) fetchResult {
	ctx, cancel := context.WithTimeout(parent, m.opts.SourceTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		done <- m.call(ctx, src)
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = fetchResult{status: SourceStatus{Source: src}}
		res.status.err = &bitquery.SourceError{Source: src, Kind: bitquery.KindTimeout, Err: ctx.Err()}
	}

	res.status.Duration = time.Since(start)
	res.status.OK = res.status.err == nil
	if err := res.status.err; err != nil {
		res.records = nil
		res.status.Kind = bitquery.KindOf(err)
		res.status.Error = err.Error()
	}

	m.logSource(res.status)
	return res
}

// call queries and normalizes one source. Panics are converted to errors.
func (m *Manager) call(ctx context.Context, src domain.Source) (res fetchResult) {
	res.status.Source = src
	defer func() {
		if r := recover(); r != nil {
			res.records = nil
			res.status.err = &bitquery.SourceError{Source: src, Kind: bitquery.KindPanic, Err: fmt.Errorf("%v", r)}
		}
	}()

	var (
		records []domain.TokenRecord
		stats   normalization.Stats
		err     error
	)
	switch src {
	case domain.SourceTrades:
		var raw *bitquery.TradesResponse
		if raw, err = m.opts.Upstream.LatestTrades(ctx, m.opts.SourceLimit); err == nil {
			records, stats = normalization.Trades(raw, m.opts.Addresses)
		}
	case domain.SourcePools:
		var raw *bitquery.PoolsResponse
		if raw, err = m.opts.Upstream.LiquidityPools(ctx); err == nil {
			records, stats = normalization.Pools(raw, m.opts.Addresses)
		}
	case domain.SourceLaunches:
		var raw *bitquery.LaunchesResponse
		if raw, err = m.opts.Upstream.TokenLaunches(ctx, m.opts.SourceLimit); err == nil {
			records, stats = normalization.Launches(raw, m.opts.Addresses)
		}
	default:
		err = fmt.Errorf("unknown source %q", src)
	}

	if err != nil {
		res.status.err = sourceError(ctx, src, err)
		return res
	}

	res.records = records
	res.status.Records = len(records)
	res.status.Dropped = stats.Dropped
	return res
}

// sourceError makes sure every failure carries a source and kind.
func sourceError(ctx context.Context, src domain.Source, err error) error {
	var se *bitquery.SourceError
	if errors.As(err, &se) {
		return err
	}
	kind := bitquery.KindNetwork
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = bitquery.KindTimeout
	}
	return &bitquery.SourceError{Source: src, Kind: kind, Err: err}
}

func (m *Manager) logSource(s SourceStatus) {
	status := "success"
	if !s.OK {
		status = string(s.Kind)
	}
	observability.RecordSourceFetch(s.Source.String(), status, s.Duration)

	if s.OK {
		observability.RecordNormalized(s.Source.String(), s.Records, s.Dropped)
		m.logger.Debug("source fetched",
			zap.String("source", s.Source.String()),
			zap.Int("records", s.Records),
			zap.Int("dropped", s.Dropped),
			zap.Duration("duration", s.Duration),
		)
		return
	}

	fields := []zap.Field{
		zap.String("source", s.Source.String()),
		zap.String("kind", string(s.Kind)),
		zap.Duration("duration", s.Duration),
		zap.Error(s.err),
	}
	var se *bitquery.SourceError
	if errors.As(s.err, &se) && se.Status != 0 {
		fields = append(fields, zap.Int("status", se.Status))
	}
	m.logger.Warn("source failed", fields...)
}
