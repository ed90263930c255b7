package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chainopt/chainopt/pkg/lp"
	"github.com/chainopt/chainopt/pkg/observability"
)

// keyType labels solution entries in cache hooks.
const keyType = "solution"

// SolverOptions configures a caching Solver.
type SolverOptions struct {
	// SolverID distinguishes results of different backends for the same
	// model, e.g. "simplex" or "glpk".
	SolverID string
	// TTL bounds how long a solution is reused. Zero keeps it forever.
	TTL time.Duration
	// Keyer derives the cache key. Defaults to DefaultKeyer.
	Keyer Keyer
}

// Solver serves repeated solves of identical models from a cache.
//
// Optimal, infeasible and unbounded outcomes are cached. Solver faults
// are not, and cache failures never fail a solve: they fall through to
// the wrapped solver.
type Solver struct {
	inner lp.Solver
	cache Cache
	opts  SolverOptions
}

// NewSolver wraps inner with c.
func NewSolver(inner lp.Solver, c Cache, opts SolverOptions) *Solver {
	if opts.Keyer == nil {
		opts.Keyer = NewDefaultKeyer()
	}
	if c == nil {
		c = NewNullCache()
	}
	return &Solver{inner: inner, cache: c, opts: opts}
}

// Solve implements lp.Solver.
func (s *Solver) Solve(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
	hash, err := ModelHash(m)
	if err != nil {
		return s.inner.Solve(ctx, m)
	}
	key := s.opts.Keyer.SolutionKey(hash, s.opts.SolverID)
	hooks := observability.Cache()

	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var sol lp.Solution
		if json.Unmarshal(data, &sol) == nil && usable(&sol, m) {
			hooks.OnCacheHit(ctx, keyType)
			if sol.Optimal() {
				sol.Objective = lp.Evaluate(m, sol.Values)
			}
			return &sol, nil
		}
	}
	hooks.OnCacheMiss(ctx, keyType)

	sol, err := s.inner.Solve(ctx, m)
	if err != nil {
		return nil, err
	}

	switch sol.Status {
	case lp.StatusOptimal, lp.StatusInfeasible, lp.StatusUnbounded:
		if data, err := json.Marshal(sol); err == nil {
			if s.cache.Set(ctx, key, data, s.opts.TTL) == nil {
				hooks.OnCacheSet(ctx, keyType, len(data))
			}
		}
	}
	return sol, nil
}

// usable reports whether a cached solution fits m.
func usable(sol *lp.Solution, m *lp.Model) bool {
	switch sol.Status {
	case lp.StatusOptimal:
		return len(sol.Values) == len(m.Vars())
	case lp.StatusInfeasible, lp.StatusUnbounded:
		return true
	}
	return false
}

var _ lp.Solver = (*Solver)(nil)
