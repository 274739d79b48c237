// Package cache memoises execution results.
//
// Identical source and stdin on the same backend give the same output, so a
// result can be reused for a while. The Executor decorator sits between the
// worker and the real backend; callers never see the cache.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented key/value store with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
