// Command fetch runs one aggregation cycle against Bitquery and prints the
// projected result as JSON. Source failures are reported on stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"launchpad-feed/internal/aggregator"
	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/config"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("LPF_CONFIG"), "Path to YAML config file (optional)")
	action := flag.String("action", "all", "Projection: all, trades, pools, launches, featured")
	limit := flag.Int("limit", 0, "Per-list limit (0 keeps whole lists, max 100)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	verbose := flag.Bool("v", false, "Log to stderr at debug level")
	flag.Parse()

	act, err := domain.ParseAction(*action)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *limit < 0 || *limit > aggregator.MaxLimit {
		fmt.Fprintf(os.Stderr, "Error: --limit must be between 0 and %d\n", aggregator.MaxLimit)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := zap.NewNop()
	if *verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Encoding = "console"
		if log, err = logger.New(cfg.Log); err != nil {
			fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
	}

	upstream := bitquery.NewHTTPClient(cfg.Bitquery.Endpoint, cfg.Bitquery.APIKey,
		bitquery.WithTimeout(cfg.Bitquery.Timeout),
		bitquery.WithMaxRetries(cfg.Bitquery.MaxRetries),
		bitquery.WithRetryDelay(cfg.Bitquery.RetryDelay),
		bitquery.WithLogger(log),
	)

	mgr := aggregator.New(aggregator.Options{
		Upstream:      upstream,
		TTL:           cfg.Cache.TTL,
		SourceTimeout: cfg.Cache.SourceTimeout,
		SourceLimit:   cfg.Cache.SourceLimit,
		FeaturedLimit: cfg.Cache.FeaturedLimit,
		Logger:        log,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := mgr.Get(ctx)
	for _, s := range res.Sources {
		if !s.OK {
			fmt.Fprintf(os.Stderr, "source %s failed (%s): %s\n", s.Source, s.Kind, s.Error)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(aggregator.Project(res.Snapshot, act, *limit)); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
}
