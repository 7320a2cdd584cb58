// Package scheduler runs periodic jobs on cron specs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"launchpad-feed/internal/observability"
)

// Runner wraps a cron instance. Jobs receive the base context so they stop
// issuing work once the process is shutting down.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

// New creates a Runner. Specs accept an optional seconds field and
// descriptors such as "@every 1m".
func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		logger:  logger.Named("scheduler"),
		baseCtx: baseCtx,
	}
}

// Add registers job under spec. A run is skipped while the previous one is
// still in progress.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		if r.baseCtx.Err() != nil {
			return
		}
		job(r.baseCtx)
	}))
	id, err := r.cron.AddJob(spec, wrapped)
	if err != nil {
		return 0, err
	}
	r.logger.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return id, nil
}

// Len returns the number of scheduled entries.
func (r *Runner) Len() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	r.logger.Info("cron started")
	r.cron.Start()
}

// Stop waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

// Warmer refreshes a cache when it is no longer fresh.
type Warmer interface {
	RefreshIfStale(ctx context.Context) (bool, error)
}

// WarmJob returns a job that refreshes w when stale. Failures are logged;
// the next tick retries.
func WarmJob(w Warmer, logger *zap.Logger) func(context.Context) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) {
		start := time.Now()
		refreshed, err := w.RefreshIfStale(ctx)
		if err != nil {
			observability.RecordWarmRun("error")
			logger.Warn("cache warm failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
			return
		}
		if !refreshed {
			observability.RecordWarmRun("fresh")
			return
		}
		observability.RecordWarmRun("refreshed")
		logger.Debug("cache warmed", zap.Duration("duration", time.Since(start)))
	}
}
