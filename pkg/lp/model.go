package lp

import (
	"context"
	"math"
	"strings"

	"github.com/chainopt/chainopt/pkg/errors"
)

// Sense is the comparison of a constraint's left-hand side with its RHS.
type Sense int

const (
	LE Sense = iota // expr <= rhs
	GE              // expr >= rhs
	EQ              // expr == rhs
)

// String returns the mathematical operator for s.
func (s Sense) String() string {
	switch s {
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return "<="
	}
}

// ParseSense parses "<=", ">=", "=" (or "le", "ge", "eq").
func ParseSense(s string) (Sense, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "<=", "le", "leq":
		return LE, nil
	case ">=", "ge", "geq":
		return GE, nil
	case "=", "==", "eq":
		return EQ, nil
	}
	return LE, errors.New(errors.ErrCodeInvalidInput, "unknown constraint sense %q (must be '<=', '>=' or '=')", s)
}

// ObjectiveSense selects minimisation or maximisation.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// String returns "minimize" or "maximize".
func (s ObjectiveSense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// ParseObjectiveSense parses "min"/"minimize" and "max"/"maximize".
// The empty string means minimisation.
func ParseObjectiveSense(s string) (ObjectiveSense, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "min", "minimize", "minimise":
		return Minimize, nil
	case "max", "maximize", "maximise":
		return Maximize, nil
	}
	return Minimize, errors.New(errors.ErrCodeInvalidInput, "unknown objective sense %q (must be 'minimize' or 'maximize')", s)
}

// Constraint is a named linear constraint Expr (sense) RHS.
// Any constant in Expr has already been folded into RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// NewConstraint builds lhs (sense) rhs, moving lhs's constant to the right.
func NewConstraint(name string, lhs Expr, sense Sense, rhs float64) Constraint {
	simplified := lhs.Simplify()
	rhs -= simplified.Constant
	simplified.Constant = 0
	return Constraint{Name: name, Expr: simplified, Sense: sense, RHS: rhs}
}

// Satisfied reports whether the constraint holds for the given values
// within tol.
func (c Constraint) Satisfied(value func(*Var) float64, tol float64) bool {
	lhs := c.Expr.Eval(value)
	switch c.Sense {
	case GE:
		return lhs >= c.RHS-tol
	case EQ:
		return math.Abs(lhs-c.RHS) <= tol
	default:
		return lhs <= c.RHS+tol
	}
}

// Solver solves a model.
//
// Solve returns a solution for every model it could process, including
// infeasible and unbounded ones. A non-nil error means the solver itself
// failed and no statement about the model can be made.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m *Model) (*Solution, error)

// Solve calls f(ctx, m).
func (f SolverFunc) Solve(ctx context.Context, m *Model) (*Solution, error) { return f(ctx, m) }

// Model is a linear program under construction.
//
// The zero value is not usable - use NewModel. A Model is not safe for
// concurrent use.
type Model struct {
	Name  string
	Sense ObjectiveSense

	vars        []*Var
	index       map[*Var]int
	names       map[string]*Var
	constraints []Constraint
	rows        map[string]int
	objective   Expr
}

// NewModel creates an empty model.
func NewModel(name string, sense ObjectiveSense) *Model {
	return &Model{
		Name:  name,
		Sense: sense,
		index: make(map[*Var]int),
		names: make(map[string]*Var),
		rows:  make(map[string]int),
	}
}

// AddVar registers v as a column of the model. Adding the same variable
// twice is a no-op; adding a different variable under a name already in
// use is an error.
func (m *Model) AddVar(v *Var) error {
	if v == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil variable")
	}
	if _, ok := m.index[v]; ok {
		return nil
	}
	if v.Name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "variable name cannot be empty")
	}
	if other, ok := m.names[v.Name]; ok && other != v {
		return errors.New(errors.ErrCodeDuplicateConstraint, "variable name %q used twice", v.Name)
	}
	if math.IsNaN(v.Upper) || v.Upper < 0 {
		return errors.New(errors.ErrCodeNonFinite, "variable %q has invalid upper bound %v", v.Name, v.Upper)
	}
	m.index[v] = len(m.vars)
	m.names[v.Name] = v
	m.vars = append(m.vars, v)
	return nil
}

// AddConstraint appends c to the model, registering any new variables.
// Constraint names must be unique within the model.
func (m *Model) AddConstraint(c Constraint) error {
	if c.Name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "constraint name cannot be empty")
	}
	if _, ok := m.rows[c.Name]; ok {
		return errors.New(errors.ErrCodeDuplicateConstraint, "constraint %q already in model %q", c.Name, m.Name)
	}
	if t, ok := c.Expr.finite(); !ok {
		if t.Var != nil {
			return errors.New(errors.ErrCodeNonFinite, "constraint %q: coefficient of %q is %v", c.Name, t.Var.Name, t.Coef)
		}
		return errors.New(errors.ErrCodeNonFinite, "constraint %q: constant term is not finite", c.Name)
	}
	if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
		return errors.New(errors.ErrCodeNonFinite, "constraint %q: right-hand side is %v", c.Name, c.RHS)
	}
	for _, v := range c.Expr.Vars() {
		if err := m.AddVar(v); err != nil {
			return err
		}
	}
	m.rows[c.Name] = len(m.constraints)
	m.constraints = append(m.constraints, c)
	return nil
}

// SetObjective replaces the objective, registering any new variables.
func (m *Model) SetObjective(e Expr) error {
	if t, ok := e.finite(); !ok {
		if t.Var != nil {
			return errors.New(errors.ErrCodeNonFinite, "objective coefficient of %q is %v", t.Var.Name, t.Coef)
		}
		return errors.New(errors.ErrCodeNonFinite, "objective constant is not finite")
	}
	e = e.Simplify()
	for _, v := range e.Vars() {
		if err := m.AddVar(v); err != nil {
			return err
		}
	}
	m.objective = e
	return nil
}

// Vars returns the model's columns in registration order.
func (m *Model) Vars() []*Var { return m.vars }

// Index returns the column index of v.
func (m *Model) Index(v *Var) (int, bool) {
	i, ok := m.index[v]
	return i, ok
}

// Constraints returns the model's rows in insertion order.
func (m *Model) Constraints() []Constraint { return m.constraints }

// Constraint looks up a row by name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	i, ok := m.rows[name]
	if !ok {
		return Constraint{}, false
	}
	return m.constraints[i], true
}

// Objective returns the objective expression.
func (m *Model) Objective() Expr { return m.objective }

// HasIntegers reports whether any column is binary.
func (m *Model) HasIntegers() bool {
	for _, v := range m.vars {
		if v.Domain == Binary {
			return true
		}
	}
	return false
}

// ObjectiveCoefficients returns the dense objective vector (without the
// constant term), aligned with Vars.
func (m *Model) ObjectiveCoefficients() []float64 {
	c := make([]float64, len(m.vars))
	for _, t := range m.objective.Terms {
		c[m.index[t.Var]] += t.Coef
	}
	return c
}
