package lp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainopt/chainopt/pkg/errors"
)

func TestExprArithmetic(t *testing.T) {
	x, y := NewContinuous("x"), NewContinuous("y")

	e := Sum(x, y).AddTerm(x, 2).Add(Const(3)).Sub(Sum(y).Scale(4))
	s := e.Simplify()

	require.Len(t, s.Terms, 2)
	assert.Equal(t, x, s.Terms[0].Var)
	assert.Equal(t, 3.0, s.Terms[0].Coef)
	assert.Equal(t, y, s.Terms[1].Var)
	assert.Equal(t, -3.0, s.Terms[1].Coef)
	assert.Equal(t, 3.0, s.Constant)

	vals := map[*Var]float64{x: 2, y: 1}
	assert.Equal(t, 6.0, s.Eval(func(v *Var) float64 { return vals[v] }))
}

func TestExprImmutable(t *testing.T) {
	x, y := NewContinuous("x"), NewContinuous("y")
	base := Sum(x)
	_ = base.AddTerm(y, 1)
	_ = base.Scale(5)

	require.Len(t, base.Terms, 1)
	assert.Equal(t, 1.0, base.Terms[0].Coef)
}

func TestSimplifyDropsZeros(t *testing.T) {
	x, y := NewContinuous("x"), NewContinuous("y")
	s := Sum(x, y).Sub(Sum(x)).Simplify()

	require.Len(t, s.Terms, 1)
	assert.Equal(t, y, s.Terms[0].Var)
}

func TestNewConstraintFoldsConstant(t *testing.T) {
	x := NewContinuous("x")
	c := NewConstraint("c", Sum(x).Add(Const(4)), LE, 10)

	assert.Equal(t, 6.0, c.RHS)
	assert.Equal(t, 0.0, c.Expr.Constant)
	assert.True(t, c.Satisfied(func(*Var) float64 { return 6 }, 1e-9))
	assert.False(t, c.Satisfied(func(*Var) float64 { return 6.1 }, 1e-9))
}

func TestModelRejectsDuplicateConstraint(t *testing.T) {
	m := NewModel("m", Minimize)
	x := NewContinuous("x")

	require.NoError(t, m.AddConstraint(NewConstraint("cap", Sum(x), LE, 1)))
	err := m.AddConstraint(NewConstraint("cap", Sum(x), GE, 0))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateConstraint))
	assert.Len(t, m.Constraints(), 1)
}

func TestModelRejectsNonFinite(t *testing.T) {
	x := NewContinuous("x")

	tests := []struct {
		name string
		add  func(m *Model) error
	}{
		{"infinite coefficient", func(m *Model) error {
			return m.AddConstraint(NewConstraint("c", Expr{}.AddTerm(x, math.Inf(1)), LE, 1))
		}},
		{"nan coefficient", func(m *Model) error {
			return m.AddConstraint(NewConstraint("c", Expr{}.AddTerm(x, math.NaN()), LE, 1))
		}},
		{"infinite rhs", func(m *Model) error {
			return m.AddConstraint(NewConstraint("c", Sum(x), LE, math.Inf(1)))
		}},
		{"infinite objective", func(m *Model) error {
			return m.SetObjective(Expr{}.AddTerm(x, math.Inf(1)))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add(NewModel("m", Minimize))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeNonFinite))
		})
	}
}

func TestModelVariableRegistration(t *testing.T) {
	m := NewModel("m", Minimize)
	x, y := NewContinuous("x"), NewBinary("y")

	require.NoError(t, m.AddConstraint(NewConstraint("c1", Sum(x, y), LE, 1)))
	require.NoError(t, m.AddConstraint(NewConstraint("c2", Sum(y, x), GE, 0)))
	require.NoError(t, m.SetObjective(Sum(x).AddTerm(y, 3)))

	assert.Equal(t, []*Var{x, y}, m.Vars())
	assert.True(t, m.HasIntegers())
	assert.Equal(t, []float64{1, 3}, m.ObjectiveCoefficients())

	i, ok := m.Index(y)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	err := m.AddVar(NewContinuous("x"))
	assert.Error(t, err, "a different variable may not reuse a name")
}

func TestParseSense(t *testing.T) {
	for in, want := range map[string]Sense{"<=": LE, ">=": GE, "=": EQ, "le": LE, "GE": GE} {
		got, err := ParseSense(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSense("<")
	assert.Error(t, err)

	s, err := ParseObjectiveSense("")
	require.NoError(t, err)
	assert.Equal(t, Minimize, s)
	s, err = ParseObjectiveSense("max")
	require.NoError(t, err)
	assert.Equal(t, Maximize, s)
}

func TestSolverFunc(t *testing.T) {
	called := false
	var s Solver = SolverFunc(func(ctx context.Context, m *Model) (*Solution, error) {
		called = true
		return Infeasible("nope"), nil
	})

	sol, err := s.Solve(context.Background(), NewModel("m", Minimize))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.False(t, sol.Optimal())
}

func TestEvaluateIncludesConstant(t *testing.T) {
	m := NewModel("m", Minimize)
	x := NewContinuous("x")
	require.NoError(t, m.SetObjective(Sum(x).Scale(2).Add(Const(5))))

	assert.Equal(t, 11.0, Evaluate(m, []float64{3}))
}
