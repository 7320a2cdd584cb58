package aggregator

import (
	"time"

	"go.uber.org/zap"

	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/observability"
	"launchpad-feed/internal/solana"
	"launchpad-feed/internal/storage"
)

// Defaults.
const (
	DefaultTTL            = 5 * time.Minute
	DefaultSourceTimeout  = 10 * time.Second
	DefaultSourceLimit    = 20
	DefaultFeaturedLimit  = 20
	DefaultPersistTimeout = 5 * time.Second
)

// Listener is notified after every successfully published snapshot.
// Implementations must not block.
type Listener interface {
	SnapshotPublished(snap *domain.Snapshot)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(snap *domain.Snapshot)

// SnapshotPublished calls f(snap).
func (f ListenerFunc) SnapshotPublished(snap *domain.Snapshot) {
	f(snap)
}

// Options for creating a Manager.
type Options struct {
	// Required
	Upstream bitquery.Upstream

	// Ready reports whether the upstream is configured. When nil and
	// Upstream has a Validate() error method, that method is used.
	Ready func() error

	TTL           time.Duration // 0 → DefaultTTL
	SourceTimeout time.Duration // per source call, 0 → DefaultSourceTimeout
	SourceLimit   int           // limit sent to trades/launches queries
	FeaturedLimit int
	Singleflight  bool // collapse concurrent refreshes into one

	// Optional persistence; nil disables.
	SnapshotStore  storage.SnapshotStore
	ActivityStore  storage.ActivityStore
	PersistTimeout time.Duration

	Listeners []Listener
	Addresses *solana.AddressCache
	Distinct  *observability.DistinctTracker
	Logger    *zap.Logger
	Now       func() time.Time
}

func (o *Options) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = DefaultSourceTimeout
	}
	if o.SourceLimit <= 0 {
		o.SourceLimit = DefaultSourceLimit
	}
	if o.FeaturedLimit <= 0 {
		o.FeaturedLimit = DefaultFeaturedLimit
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = DefaultPersistTimeout
	}
	if o.Addresses == nil {
		o.Addresses = solana.NewAddressCache(0)
	}
	if o.Distinct == nil {
		o.Distinct = observability.NewDistinctTracker()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Ready == nil {
		if v, ok := o.Upstream.(interface{ Validate() error }); ok {
			o.Ready = v.Validate
		}
	}
}
