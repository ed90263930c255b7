// Package simplex solves lp models in-process.
//
// Continuous models are converted to standard form and handed to gonum's
// dense simplex implementation. Models with binary variables are solved by
// depth-first branch-and-bound over the LP relaxation.
//
// The solver is meant for the small and medium networks an analyst builds
// by hand. Large models should go through an industrial solver, for
// example via package glpk.
package simplex

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"

	convex "gonum.org/v1/gonum/optimize/convex/lp"
	"gonum.org/v1/gonum/mat"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
)

// Default values for Options.
const (
	DefaultTolerance            = 1e-10
	DefaultIntegralityTolerance = 1e-6
	DefaultMaxNodes             = 10000
)

// Options configures the solver. Zero fields take the defaults above.
type Options struct {
	// Tolerance is the reduced-cost tolerance of the simplex iterations.
	Tolerance float64
	// IntegralityTolerance is how far from 0 or 1 a binary may be and still
	// count as integral.
	IntegralityTolerance float64
	// MaxNodes bounds the number of branch-and-bound nodes explored.
	MaxNodes int
}

func (o *Options) setDefaults() {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.IntegralityTolerance <= 0 {
		o.IntegralityTolerance = DefaultIntegralityTolerance
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
}

// Solver implements lp.Solver on top of gonum.
type Solver struct {
	opts Options
}

// New returns a solver with the given options.
func New(opts Options) *Solver {
	opts.setDefaults()
	return &Solver{opts: opts}
}

// Solve implements lp.Solver.
func (s *Solver) Solve(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vars := m.Vars()
	lo := make([]float64, len(vars))
	hi := make([]float64, len(vars))
	for j, v := range vars {
		hi[j] = v.Upper
		if v.Domain == lp.Binary {
			hi[j] = math.Min(1, v.Upper)
		}
	}

	if !m.HasIntegers() {
		st, x, err := s.relax(m, lo, hi)
		if err != nil {
			return nil, err
		}
		return s.solution(m, st, x), nil
	}
	return s.branchAndBound(ctx, m, lo, hi)
}

func (s *Solver) solution(m *lp.Model, st lp.Status, x []float64) *lp.Solution {
	switch st {
	case lp.StatusOptimal:
		return &lp.Solution{Status: st, Objective: lp.Evaluate(m, x), Values: x}
	case lp.StatusUnbounded:
		return lp.Unbounded("objective is unbounded")
	default:
		return lp.Infeasible("no feasible flow")
	}
}

// node is one branch-and-bound subproblem, described by its column bounds.
type node struct {
	lo, hi []float64
}

func (s *Solver) branchAndBound(ctx context.Context, m *lp.Model, lo, hi []float64) (*lp.Solution, error) {
	vars := m.Vars()
	cost := minCost(m)

	var (
		best      []float64
		bestValue = math.Inf(1)
		explored  int
	)

	stack := []node{{lo: lo, hi: hi}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		explored++
		if explored > s.opts.MaxNodes {
			return nil, errors.New(errors.ErrCodeSolver, "branch-and-bound node limit (%d) reached", s.opts.MaxNodes)
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		st, x, err := s.relax(m, n.lo, n.hi)
		if err != nil {
			return nil, err
		}
		switch st {
		case lp.StatusInfeasible:
			continue
		case lp.StatusUnbounded:
			return lp.Unbounded("relaxation is unbounded"), nil
		}

		z := dot(cost, x)
		if z >= bestValue-s.opts.Tolerance {
			continue
		}

		branch, frac := -1, 0.0
		for j, v := range vars {
			if v.Domain != lp.Binary {
				continue
			}
			f := x[j] - math.Floor(x[j])
			if f <= s.opts.IntegralityTolerance || f >= 1-s.opts.IntegralityTolerance {
				continue
			}
			// Most fractional first.
			if d := math.Min(f, 1-f); d > frac {
				branch, frac = j, d
			}
		}

		if branch < 0 {
			for j, v := range vars {
				if v.Domain == lp.Binary {
					x[j] = math.Round(x[j])
				}
			}
			best, bestValue = x, z
			continue
		}

		down := node{lo: clone(n.lo), hi: clone(n.hi)}
		down.hi[branch] = 0
		up := node{lo: clone(n.lo), hi: clone(n.hi)}
		up.lo[branch] = 1

		// Explore the side the relaxation leans towards first.
		if x[branch] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if best == nil {
		return lp.Infeasible("no integer-feasible assignment"), nil
	}
	return &lp.Solution{Status: lp.StatusOptimal, Objective: lp.Evaluate(m, best), Values: best}, nil
}

// relax solves the LP relaxation of m with column bounds lo ≤ x ≤ hi.
// lo is either 0 or equal to hi. Single-column equality rows are applied
// as bounds first.
func (s *Solver) relax(m *lp.Model, lo, hi []float64) (status lp.Status, x []float64, err error) {
	vars := m.Vars()
	n := len(vars)
	cost := minCost(m)
	tol := math.Max(s.opts.IntegralityTolerance, 1e-9)

	lo, hi, ok := fixSingletons(m, lo, hi, tol)
	if !ok {
		return lp.StatusInfeasible, nil, nil
	}

	x = make([]float64, n)
	active := make([]bool, n)
	for j := range vars {
		if hi[j] <= lo[j] {
			x[j] = lo[j]
			continue
		}
		active[j] = true
	}

	// Columns that appear in no constraint are settled by their cost alone.
	appears := make([]bool, n)
	for _, c := range m.Constraints() {
		for _, t := range c.Expr.Terms {
			j, _ := m.Index(t.Var)
			appears[j] = true
		}
	}
	for j := range vars {
		if !active[j] || appears[j] {
			continue
		}
		active[j] = false
		if cost[j] < 0 {
			if math.IsInf(hi[j], 1) {
				return lp.StatusUnbounded, nil, nil
			}
			x[j] = hi[j]
		}
	}

	col := make([]int, n)
	nActive := 0
	for j := range vars {
		col[j] = -1
		if active[j] {
			col[j] = nActive
			nActive++
		}
	}

	type row struct {
		coefs []float64 // over active columns
		slack float64   // +1 for <=, -1 for >=, 0 for =
		rhs   float64
	}
	var rows []row

	for _, c := range m.Constraints() {
		r := row{coefs: make([]float64, nActive), rhs: c.RHS}
		nonzero := false
		for _, t := range c.Expr.Terms {
			j, _ := m.Index(t.Var)
			if active[j] {
				r.coefs[col[j]] += t.Coef
				nonzero = nonzero || r.coefs[col[j]] != 0
				continue
			}
			r.rhs -= t.Coef * x[j]
		}
		if !nonzero {
			if !holdsAtZero(c.Sense, r.rhs, tol) {
				return lp.StatusInfeasible, nil, nil
			}
			continue
		}
		switch c.Sense {
		case lp.LE:
			r.slack = 1
		case lp.GE:
			r.slack = -1
		}
		rows = append(rows, r)
	}
	for j := range vars {
		if active[j] && !math.IsInf(hi[j], 1) {
			r := row{coefs: make([]float64, nActive), slack: 1, rhs: hi[j]}
			r.coefs[col[j]] = 1
			rows = append(rows, r)
		}
	}

	if len(rows) == 0 {
		return lp.StatusOptimal, x, nil
	}

	nSlack := 0
	for _, r := range rows {
		if r.slack != 0 {
			nSlack++
		}
	}

	cols := nActive + nSlack
	A := mat.NewDense(len(rows), cols, nil)
	b := make([]float64, len(rows))
	c := make([]float64, cols)
	for j := range vars {
		if active[j] {
			c[col[j]] = cost[j]
		}
	}

	slack := nActive
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for k, v := range r.coefs {
			if v != 0 {
				A.Set(i, k, sign*v)
			}
		}
		if r.slack != 0 {
			A.Set(i, slack, sign*r.slack)
			slack++
		}
		b[i] = sign * r.rhs
	}

	optX, err := s.simplex(c, A, b)
	switch {
	case err == nil:
	case stderrors.Is(err, convex.ErrInfeasible):
		return lp.StatusInfeasible, nil, nil
	case stderrors.Is(err, convex.ErrUnbounded):
		return lp.StatusUnbounded, nil, nil
	default:
		return lp.StatusError, nil, errors.Wrap(errors.ErrCodeSolver, err, "simplex on %d×%d system", len(rows), cols)
	}

	for j := range vars {
		if active[j] {
			x[j] = math.Max(0, optX[col[j]])
		}
	}
	return lp.StatusOptimal, x, nil
}

// fixSingletons turns equality rows over a single column into fixed column
// bounds. Such rows pin binaries next to big-M link rows, and leaving them
// in the system makes gonum's basis search reject it as singular. The
// returned slices are copies; ok is false when a row contradicts the
// bounds.
func fixSingletons(m *lp.Model, lo, hi []float64, tol float64) (flo, fhi []float64, ok bool) {
	flo, fhi = clone(lo), clone(hi)
	for _, c := range m.Constraints() {
		if c.Sense != lp.EQ {
			continue
		}
		j, coef := -1, 0.0
		single := true
		for _, t := range c.Expr.Terms {
			k, _ := m.Index(t.Var)
			if j >= 0 && k != j {
				single = false
				break
			}
			j = k
			coef += t.Coef
		}
		if !single || j < 0 || coef == 0 {
			continue
		}
		v := c.RHS / coef
		if v < flo[j]-tol || v > fhi[j]+tol {
			return nil, nil, false
		}
		v = math.Min(math.Max(v, flo[j]), fhi[j])
		flo[j], fhi[j] = v, v
	}
	return flo, fhi, true
}

// simplex calls gonum, turning its panics on malformed systems into errors.
func (s *Solver) simplex(c []float64, A *mat.Dense, b []float64) (x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gonum simplex: %v", r)
		}
	}()
	_, x, err = convex.Simplex(c, A, b, s.opts.Tolerance, nil)
	return x, err
}

// minCost returns the objective vector in minimisation form.
func minCost(m *lp.Model) []float64 {
	c := m.ObjectiveCoefficients()
	if m.Sense == lp.Maximize {
		for j := range c {
			c[j] = -c[j]
		}
	}
	return c
}

func holdsAtZero(sense lp.Sense, rhs, tol float64) bool {
	switch sense {
	case lp.GE:
		return rhs <= tol
	case lp.EQ:
		return math.Abs(rhs) <= tol
	default:
		return rhs >= -tol
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

var _ lp.Solver = (*Solver)(nil)
