package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainopt/chainopt/pkg/cache"
	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
	"github.com/chainopt/chainopt/pkg/lp/glpk"
	"github.com/chainopt/chainopt/pkg/lp/simplex"
)

const (
	solverSimplex = "simplex"
	solverGLPK    = "glpk"
)

// solverFlags holds the backend flags shared by solve and render.
type solverFlags struct {
	name     string // simplex or glpk
	glpsol   string // glpsol binary
	maxNodes int    // branch-and-bound node limit (simplex)
	noCache  bool
	redis    string
}

func (f *solverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "solver", solverSimplex, "solver backend: simplex (in-process), glpk (glpsol)")
	cmd.Flags().StringVar(&f.glpsol, "glpsol", glpk.DefaultBinary, "path to the glpsol binary")
	cmd.Flags().IntVar(&f.maxNodes, "max-nodes", simplex.DefaultMaxNodes, "branch-and-bound node limit for the simplex backend")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the solution cache")
	cmd.Flags().StringVar(&f.redis, "redis", "", "share solutions through Redis at host:port (env "+redisEnv+")")
}

// build returns the configured solver wrapped in the solution cache, and a
// function releasing the cache.
func (f *solverFlags) build(ctx context.Context) (lp.Solver, func() error, error) {
	var inner lp.Solver
	switch f.name {
	case solverSimplex:
		inner = simplex.New(simplex.Options{MaxNodes: f.maxNodes})
	case solverGLPK:
		g := glpk.New(glpk.Options{Binary: f.glpsol})
		if !g.Available() {
			return nil, nil, errors.New(errors.ErrCodeUnsupported, "glpsol not found (looked for %q); install GLPK or use --solver simplex", f.glpsol)
		}
		inner = g
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "unknown solver %q (must be %s or %s)", f.name, solverSimplex, solverGLPK)
	}

	redis := f.redis
	if redis == "" {
		redis = os.Getenv(redisEnv)
	}
	c, err := newCache(ctx, f.noCache, redis)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	s := cache.NewSolver(inner, c, cache.SolverOptions{SolverID: f.name})
	return s, c.Close, nil
}
