package aggregator

import "errors"

var (
	// ErrConfiguration is returned before any I/O when the upstream is not
	// usable (missing API key or endpoint). It is never served from cache.
	ErrConfiguration = errors.New("configuration error")

	// ErrTotalRefreshFailure is returned when every source failed and there
	// is no previous snapshot to fall back to.
	ErrTotalRefreshFailure = errors.New("all sources failed")
)
