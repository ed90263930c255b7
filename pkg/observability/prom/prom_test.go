package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSolveMetrics(t *testing.T) {
	h := New(nil)
	ctx := context.Background()

	h.OnBuildComplete(ctx, "SteelCo", 8, 6, time.Millisecond)
	h.OnSolveStart(ctx, "SteelCo")
	h.OnSolveComplete(ctx, "SteelCo", "optimal", 20*time.Millisecond, nil)
	h.OnSolveComplete(ctx, "SteelCo", "infeasible", 10*time.Millisecond, nil)
	h.OnSolveComplete(ctx, "SteelCo", "optimal", time.Millisecond, errors.New("glpsol crashed"))

	if got := testutil.ToFloat64(h.BuildsTotal.WithLabelValues("SteelCo")); got != 1 {
		t.Errorf("builds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.SolvesTotal.WithLabelValues("SteelCo", "optimal")); got != 1 {
		t.Errorf("optimal solves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.SolvesTotal.WithLabelValues("SteelCo", "error")); got != 1 {
		t.Errorf("failed solves = %v, want 1", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	h := New(nil)
	ctx := context.Background()

	h.OnCacheMiss(ctx, "solution")
	h.OnCacheSet(ctx, "solution", 512)
	h.OnCacheHit(ctx, "solution")
	h.OnCacheHit(ctx, "solution")

	if got := testutil.ToFloat64(h.CacheRequests.WithLabelValues("solution", "hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.CacheRequests.WithLabelValues("solution", "miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.CacheBytes.WithLabelValues("solution")); got != 512 {
		t.Errorf("bytes = %v, want 512", got)
	}
}

func TestSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg)
	h.OnCacheHit(context.Background(), "solution")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "chainopt_cache_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("cache metric not registered on the given registry")
	}
	if h.Gatherer() != reg {
		t.Error("Gatherer should return the given registry")
	}
}
