package chain

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
	"github.com/chainopt/chainopt/pkg/observability"
)

// Result is the outcome of a successful solve.
type Result struct {
	RunID     uuid.UUID
	Objective float64
	Model     *lp.Model
	Solution  *lp.Solution
	Duration  time.Duration

	flows map[*ArcBlock][][]float64
}

// Flow returns the solved flow on arc (i, j) of b. ok is false when b was
// not part of the solved network or (i, j) lies outside it.
func (r *Result) Flow(b *ArcBlock, i, j int) (flow float64, ok bool) {
	vals, found := r.flows[b]
	if !found || i < 0 || i >= len(vals) || j < 0 || j >= len(vals[i]) {
		return 0, false
	}
	return vals[i][j], true
}

// Model compiles the network into a fresh LP model without solving it.
func (c *Chain) Model() (*lp.Model, error) {
	m := lp.NewModel(c.name, c.sense)
	var objective lp.Expr

	// Register flow columns first so that variable order follows the
	// connection order regardless of which rows mention them.
	for _, b := range c.arcs {
		for _, row := range b.Flows {
			for _, v := range row {
				if err := m.AddVar(v); err != nil {
					return nil, err
				}
			}
		}
		objective = objective.Add(b.CostExpr())
	}

	for _, l := range c.layers {
		rows, err := l.Constraints()
		if err != nil {
			return nil, err
		}
		rows = append(rows, l.LocationConstraints(c.bigM)...)
		los, err := l.LOSRows()
		if err != nil {
			return nil, err
		}
		rows = append(rows, los...)

		for _, row := range rows {
			if err := m.AddConstraint(row); err != nil {
				return nil, err
			}
		}
		for _, y := range l.open {
			if err := m.AddVar(y); err != nil {
				return nil, err
			}
		}
		objective = objective.Add(l.FixedCostExpr())
	}

	if err := m.SetObjective(objective); err != nil {
		return nil, err
	}
	return m, nil
}

// Solve compiles and solves the network if it changed since the last
// successful solve.
//
// Infeasible and unbounded models are not errors: the chain records the
// status, drops any cached result and stays dirty. Errors are structural
// problems found while compiling (DIMENSION_MISMATCH and friends), solver
// faults (SOLVER_FAILED) or context cancellation.
func (c *Chain) Solve(ctx context.Context) error {
	if !c.dirty {
		return nil
	}
	c.result = nil

	start := time.Now()
	m, err := c.Model()
	if err != nil {
		return err
	}
	hooks := observability.Solve()
	hooks.OnBuildComplete(ctx, c.name, len(m.Vars()), len(m.Constraints()), time.Since(start))
	c.logger.Debug("model built", "chain", c.name, "vars", len(m.Vars()), "constraints", len(m.Constraints()))

	hooks.OnSolveStart(ctx, c.name)
	solveStart := time.Now()
	sol, err := c.solver.Solve(ctx, m)
	elapsed := time.Since(solveStart)
	if err != nil {
		c.status = lp.StatusError
		hooks.OnSolveComplete(ctx, c.name, lp.StatusError.String(), elapsed, err)
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if errors.GetCode(err) != "" {
			return err
		}
		return errors.Wrap(errors.ErrCodeSolver, err, "solve chain %q", c.name)
	}
	hooks.OnSolveComplete(ctx, c.name, sol.Status.String(), elapsed, nil)

	c.status = sol.Status
	if !sol.Optimal() {
		c.logger.Warn("problem could not be solved", "chain", c.name, "status", sol.Status, "reason", sol.Message)
		return nil
	}
	if len(sol.Values) != len(m.Vars()) {
		c.status = lp.StatusError
		return errors.New(errors.ErrCodeSolver, "solver returned %d values for %d variables", len(sol.Values), len(m.Vars()))
	}

	r := &Result{
		RunID:     uuid.New(),
		Objective: sol.Objective,
		Model:     m,
		Solution:  sol,
		Duration:  elapsed,
		flows:     make(map[*ArcBlock][][]float64, len(c.arcs)),
	}
	for _, b := range c.arcs {
		vals := make([][]float64, len(b.Flows))
		for i, row := range b.Flows {
			vals[i] = make([]float64, len(row))
			for j, v := range row {
				vals[i][j] = sol.Value(m, v)
			}
		}
		r.flows[b] = vals
	}

	c.result = r
	c.dirty = false
	c.logger.Debug("solved", "chain", c.name, "run", r.RunID, "objective", r.Objective, "took", elapsed)
	return nil
}

// Result solves if needed and returns the cached result, or nil when the
// model is infeasible or unbounded.
func (c *Chain) Result(ctx context.Context) (*Result, error) {
	if err := c.Solve(ctx); err != nil {
		return nil, err
	}
	return c.result, nil
}

// Cost returns the optimal objective value. ok is false when the model is
// infeasible or unbounded.
func (c *Chain) Cost(ctx context.Context) (cost float64, ok bool, err error) {
	r, err := c.Result(ctx)
	if err != nil || r == nil {
		return 0, false, err
	}
	return r.Objective, true, nil
}

// ArcValues returns the solved flow of every arc, or nil when the model is
// infeasible or unbounded.
func (c *Chain) ArcValues(ctx context.Context) (map[ArcKey]float64, error) {
	r, err := c.Result(ctx)
	if err != nil || r == nil {
		return nil, err
	}
	values := make(map[ArcKey]float64)
	for _, b := range c.arcs {
		for i, row := range r.flows[b] {
			for j, v := range row {
				values[b.Key(i, j)] = v
			}
		}
	}
	return values, nil
}

// Flows returns the solved inflow and outflow of each node of l. A side
// without arcs is nil, and both are nil when there is no result.
func (c *Chain) Flows(ctx context.Context, l *Layer) (in, out []float64, err error) {
	if !c.registered(l) {
		return nil, nil, errors.NotAttached(l.name, c.name)
	}
	r, err := c.Result(ctx)
	if err != nil || r == nil {
		return nil, nil, err
	}
	if l.in != nil {
		in = make([]float64, l.Size())
		for _, row := range r.flows[l.in] {
			for j, v := range row {
				in[j] += v
			}
		}
	}
	if l.out != nil {
		out = make([]float64, l.Size())
		for i, row := range r.flows[l.out] {
			for _, v := range row {
				out[i] += v
			}
		}
	}
	return in, out, nil
}

// OpenLocations returns 1 for every open node of l and 0 for every closed
// one, or nil when there is no result.
func (c *Chain) OpenLocations(ctx context.Context, l *Layer) ([]int, error) {
	if !c.registered(l) {
		return nil, errors.NotAttached(l.name, c.name)
	}
	r, err := c.Result(ctx)
	if err != nil || r == nil {
		return nil, err
	}
	open := make([]int, l.Size())
	for i := range open {
		switch {
		case l.selectable:
			open[i] = int(math.Round(r.Solution.Value(r.Model, l.open[i])))
		case l.isOpen(i):
			open[i] = 1
		}
	}
	return open, nil
}
