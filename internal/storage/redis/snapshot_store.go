package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/storage"
)

// Defaults for the shared snapshot log.
const (
	DefaultKeyPrefix = "launchpad-feed"
	DefaultRetention = 24 * time.Hour
	DefaultMaxKept   = 32
)

// SnapshotStore implements storage.SnapshotStore on Redis so several
// instances can share the last published snapshot.
//
// Layout: <prefix>:snapshot:<unix-nanos> holds the JSON payload (SETNX, with
// TTL) and <prefix>:snapshots is a sorted set indexing payload keys by time.
type SnapshotStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	maxKept   int64
}

// Option configures a SnapshotStore.
type Option func(*SnapshotStore)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *SnapshotStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetention sets payload TTL and how many snapshots the index keeps.
func WithRetention(ttl time.Duration, maxKept int) Option {
	return func(s *SnapshotStore) {
		if ttl > 0 {
			s.retention = ttl
		}
		if maxKept > 0 {
			s.maxKept = int64(maxKept)
		}
	}
}

// NewSnapshotStore creates a store on top of an existing client.
func NewSnapshotStore(client *redis.Client, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		client:    client,
		prefix:    DefaultKeyPrefix,
		retention: DefaultRetention,
		maxKept:   DefaultMaxKept,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Connect creates a client and verifies the connection.
func Connect(ctx context.Context, opt *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return client, nil
}

func (s *SnapshotStore) indexKey() string {
	return s.prefix + ":snapshots"
}

func (s *SnapshotStore) payloadKey(member string) string {
	return s.prefix + ":snapshot:" + member
}

// Save appends a snapshot. Returns ErrDuplicateKey if LastUpdated exists.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.IsCold() {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	member := strconv.FormatInt(snap.LastUpdated.UnixNano(), 10)
	ok, err := s.client.SetNX(ctx, s.payloadKey(member), payload, s.retention).Result()
	if err != nil {
		return fmt.Errorf("store snapshot payload: %w", err)
	}
	if !ok {
		return storage.ErrDuplicateKey
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(snap.LastUpdated.UnixMilli()),
		Member: member,
	})
	// Keep only the newest maxKept entries in the index.
	pipe.ZRemRangeByRank(ctx, s.indexKey(), 0, -s.maxKept-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot whose payload has not expired.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	members, err := s.client.ZRevRange(ctx, s.indexKey(), 0, s.maxKept-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshot index: %w", err)
	}

	for _, member := range members {
		payload, err := s.client.Get(ctx, s.payloadKey(member)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get snapshot %s: %w", member, err)
		}

		var snap domain.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", member, err)
		}
		snap.Normalize()
		return &snap, nil
	}
	return nil, storage.ErrNotFound
}
