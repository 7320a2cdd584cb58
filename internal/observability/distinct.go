package observability

import (
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// DistinctTracker estimates the number of distinct token addresses seen.
// Memory is constant (about 6KB) regardless of how many mints stream by.
type DistinctTracker struct {
	mu     sync.Mutex
	sketch *hyperloglog.Sketch
}

// NewDistinctTracker creates a tracker with 0.81% standard error.
func NewDistinctTracker() *DistinctTracker {
	return &DistinctTracker{sketch: hyperloglog.New16()}
}

// Add records addresses and returns the updated estimate.
func (d *DistinctTracker) Add(addrs ...string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range addrs {
		if a == "" {
			continue
		}
		d.sketch.Insert([]byte(a))
	}
	return d.sketch.Estimate()
}

// Estimate returns the current estimate.
func (d *DistinctTracker) Estimate() uint64 {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sketch.Estimate()
}
