// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chainopt/chainopt/pkg/observability"
)

// Hooks records solve and cache events as Prometheus metrics.
type Hooks struct {
	registry prometheus.Gatherer

	BuildsTotal      *prometheus.CounterVec
	ModelVariables   *prometheus.HistogramVec
	ModelConstraints *prometheus.HistogramVec
	SolvesTotal      *prometheus.CounterVec
	SolveDuration    *prometheus.HistogramVec
	CacheRequests    *prometheus.CounterVec
	CacheBytes       *prometheus.CounterVec
}

// New creates the metrics on reg. A nil reg gets a fresh private registry.
func New(reg *prometheus.Registry) *Hooks {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	h := &Hooks{registry: reg}

	h.BuildsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainopt_model_builds_total",
			Help: "Total number of LP models compiled from a chain",
		},
		[]string{"chain"},
	)

	h.ModelVariables = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainopt_model_variables",
			Help:    "Number of decision variables per compiled model",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"chain"},
	)

	h.ModelConstraints = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainopt_model_constraints",
			Help:    "Number of constraints per compiled model",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"chain"},
	)

	h.SolvesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainopt_solves_total",
			Help: "Total number of solver invocations by outcome",
		},
		[]string{"chain", "status"},
	)

	h.SolveDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainopt_solve_duration_seconds",
			Help:    "Solver wall-clock time in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"chain"},
	)

	h.CacheRequests = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainopt_cache_requests_total",
			Help: "Total number of solution cache lookups by result",
		},
		[]string{"key_type", "result"},
	)

	h.CacheBytes = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainopt_cache_written_bytes_total",
			Help: "Bytes written to the solution cache",
		},
		[]string{"key_type"},
	)

	return h
}

// Gatherer returns the registry the metrics live on.
func (h *Hooks) Gatherer() prometheus.Gatherer { return h.registry }

// OnBuildComplete implements observability.SolveHooks.
func (h *Hooks) OnBuildComplete(_ context.Context, chain string, vars, constraints int, _ time.Duration) {
	h.BuildsTotal.WithLabelValues(chain).Inc()
	h.ModelVariables.WithLabelValues(chain).Observe(float64(vars))
	h.ModelConstraints.WithLabelValues(chain).Observe(float64(constraints))
}

// OnSolveStart implements observability.SolveHooks.
func (h *Hooks) OnSolveStart(context.Context, string) {}

// OnSolveComplete implements observability.SolveHooks.
func (h *Hooks) OnSolveComplete(_ context.Context, chain, status string, d time.Duration, err error) {
	if err != nil {
		status = "error"
	}
	h.SolvesTotal.WithLabelValues(chain, status).Inc()
	h.SolveDuration.WithLabelValues(chain).Observe(d.Seconds())
}

// OnCacheHit implements observability.CacheHooks.
func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

var (
	_ observability.SolveHooks = (*Hooks)(nil)
	_ observability.CacheHooks = (*Hooks)(nil)
)
