package cache

import (
	"context"
	"time"
)

// Store is a bounded key/value cache with per-key TTL. It memoizes expensive,
// slow-changing datasets (the full fulfillment-stock snapshot) so repeated
// pipeline invocations within the TTL window skip the paginated re-fetch.
// A hit is semantically equivalent to redoing the fetch: stale-but-within-TTL
// data is an accepted trade-off, not a bug.
type Store interface {
	// Get returns the payload for the key and whether it was present and unexpired
	Get(ctx context.Context, key string) (string, bool, error)
	// Put stores the payload under the key for the given TTL
	Put(ctx context.Context, key, payload string, ttl time.Duration) error
	// Remove deletes the key
	Remove(ctx context.Context, key string) error
}
