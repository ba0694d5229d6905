// Package cache stores computed layouts and rendered artifacts so that
// repeated requests for the same graph and options skip the work.
//
// Three backends implement [Cache]:
//
//   - [FileCache] for the CLI, one JSON envelope per entry under a directory
//   - [RedisCache] for the server when several instances share results
//   - [NullCache] when caching is disabled
//
// Keys come from a [Keyer], which hashes the graph content together with
// every option that changes the output.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per entry kind.
const (
	// SimulationTTL is how long seeded simulations stay cached.
	SimulationTTL = 24 * time.Hour

	// LayoutTTL is how long computed layouts stay cached.
	LayoutTTL = 24 * time.Hour

	// RenderTTL is how long rendered artifacts stay cached.
	RenderTTL = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss with ok == false and a nil error; errors are reserved
// for backend failures. A zero ttl means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
