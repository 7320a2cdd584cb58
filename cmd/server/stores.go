package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"launchpad-feed/internal/config"
	"launchpad-feed/internal/storage"
	chstore "launchpad-feed/internal/storage/clickhouse"
	"launchpad-feed/internal/storage/memory"
	"launchpad-feed/internal/storage/migrations"
	pgstore "launchpad-feed/internal/storage/postgres"
	redisstore "launchpad-feed/internal/storage/redis"
)

// allStores holds the optional persistence backends. Nil fields are disabled.
type allStores struct {
	snapshots storage.SnapshotStore
	activity  storage.ActivityStore
}

// createStores opens the configured backends and applies migrations.
func createStores(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*allStores, func(), error) {
	stores := &allStores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Snapshots {
	case config.SnapshotsMemory:
		stores.snapshots = memory.NewSnapshotStore()

	case config.SnapshotsPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.snapshots = pgstore.NewSnapshotStore(pool)

	case config.SnapshotsRedis:
		client, err := redisstore.Connect(ctx, &goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		stores.snapshots = redisstore.NewSnapshotStore(client, redisstore.WithKeyPrefix(cfg.RedisKey))
	}

	switch cfg.Activity {
	case config.ActivityMemory:
		stores.activity = memory.NewActivityStore()

	case config.ActivityClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		stores.activity = chstore.NewActivityStore(conn)
	}

	log.Info("stores ready",
		zap.String("snapshots", cfg.Snapshots),
		zap.String("activity", cfg.Activity),
	)
	return stores, cleanup, nil
}
