// Package observability provides hooks for metrics and tracing.
//
// Libraries in this module report what they do through small hook
// interfaces instead of depending on a metrics backend. The binary
// registers an implementation at startup (see package prom); everything
// else sees the no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetSolveHooks(h)
//	    observability.SetCacheHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Solve().OnSolveStart(ctx, chainName, vars, rows)
//	// ... solve ...
//	observability.Solve().OnSolveComplete(ctx, chainName, status, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// SolveHooks receives events from the chain build/solve lifecycle.
type SolveHooks interface {
	// OnBuildComplete records a model compilation.
	OnBuildComplete(ctx context.Context, chain string, vars, constraints int, duration time.Duration)

	// OnSolveStart records a solver invocation.
	OnSolveStart(ctx context.Context, chain string)

	// OnSolveComplete records the solver outcome. status is the lower-case
	// solution status ("optimal", "infeasible", ...) or "error".
	OnSolveComplete(ctx context.Context, chain, status string, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopSolveHooks is a no-op implementation of SolveHooks.
type NoopSolveHooks struct{}

func (NoopSolveHooks) OnBuildComplete(context.Context, string, int, int, time.Duration)        {}
func (NoopSolveHooks) OnSolveStart(context.Context, string)                                   {}
func (NoopSolveHooks) OnSolveComplete(context.Context, string, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	solveHooks SolveHooks = NoopSolveHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetSolveHooks registers custom solve hooks.
// This should be called once at application startup before any solve.
func SetSolveHooks(h SolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		solveHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Solve returns the registered solve hooks.
func Solve() SolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return solveHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	solveHooks = NoopSolveHooks{}
	cacheHooks = NoopCacheHooks{}
}
