// Package cache stores solver results keyed by the model they answer.
//
// Compiling a network is cheap; solving it may not be. The [Solver]
// wrapper hashes the compiled model and serves repeated solves of an
// identical model from a [Cache]. Backends:
//   - [FileCache]: one JSON file per entry under a local directory (CLI)
//   - [RedisCache]: a shared Redis instance
//   - [NullCache]: stores nothing, for --no-cache and tests
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// NullCache stores nothing; every Get is a miss.
type NullCache struct{}

// NewNullCache returns a cache that discards writes.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
