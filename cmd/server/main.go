// Package main runs the launchpad-feed HTTP service:
// - /tokens served from the five-minute aggregation cache
// - /ws pushing the featured list after every refresh
// - /health, /status and /metrics for operations
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"launchpad-feed/internal/aggregator"
	"launchpad-feed/internal/api"
	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/config"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/logger"
	"launchpad-feed/internal/observability"
	"launchpad-feed/internal/scheduler"
	"launchpad-feed/internal/solana"
)

func main() {
	configPath := flag.String("config", os.Getenv("LPF_CONFIG"), "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := createStores(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("create stores failed", zap.Error(err))
	}
	defer cleanup()

	upstream := bitquery.NewHTTPClient(cfg.Bitquery.Endpoint, cfg.Bitquery.APIKey,
		bitquery.WithTimeout(cfg.Bitquery.Timeout),
		bitquery.WithMaxRetries(cfg.Bitquery.MaxRetries),
		bitquery.WithRetryDelay(cfg.Bitquery.RetryDelay),
		bitquery.WithLogger(log),
	)
	if err := upstream.Validate(); err != nil {
		// Keep serving: /tokens fails closed until the key is configured.
		log.Error("bitquery client not configured", zap.Error(err))
	}

	addresses := solana.NewAddressCache(solana.DefaultCacheSize)

	var mgr *aggregator.Manager
	hub := api.NewHub(api.HubConfig{
		Current: func() *domain.Snapshot { return mgr.Snapshot() },
		Logger:  log,
	})

	mgr = aggregator.New(aggregator.Options{
		Upstream:       upstream,
		TTL:            cfg.Cache.TTL,
		SourceTimeout:  cfg.Cache.SourceTimeout,
		SourceLimit:    cfg.Cache.SourceLimit,
		FeaturedLimit:  cfg.Cache.FeaturedLimit,
		Singleflight:   cfg.Cache.Singleflight,
		SnapshotStore:  stores.snapshots,
		ActivityStore:  stores.activity,
		PersistTimeout: cfg.Cache.PersistTimeout,
		Listeners:      []aggregator.Listener{hub},
		Addresses:      addresses,
		Distinct:       observability.NewDistinctTracker(),
		Logger:         log,
	})

	if cfg.Cache.RestoreOnStart && stores.snapshots != nil {
		restoreCtx, cancel := context.WithTimeout(ctx, cfg.Cache.PersistTimeout)
		if err := mgr.Restore(restoreCtx); err != nil {
			log.Warn("snapshot restore failed", zap.Error(err))
		}
		cancel()
	}

	var cron *scheduler.Runner
	if cfg.Cron.Enabled {
		cron = scheduler.New(log, ctx)
		if _, err := cron.Add("warm", cfg.Cron.Warm, scheduler.WarmJob(mgr, log)); err != nil {
			log.Fatal("schedule warm job failed", zap.String("spec", cfg.Cron.Warm), zap.Error(err))
		}
		cron.Start()
	}

	server := api.NewServer(api.Options{
		Cache:     mgr,
		Activity:  stores.activity,
		Hub:       hub,
		Addresses: addresses,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("http server error", zap.Error(err))
	}
	stop()

	// A second signal now terminates immediately.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Warn("forcing immediate shutdown", zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if cron != nil {
		cron.Stop()
	}
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}

	log.Info("shutdown complete", zap.Int64("cycles", mgr.Cycles()))
}
