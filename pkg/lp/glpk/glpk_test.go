package glpk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
)

// model returns min x + 3y + 2 subject to x + y >= 4, y <= 1 (binary).
func model(t *testing.T) (*lp.Model, *lp.Var, *lp.Var) {
	t.Helper()
	m := lp.NewModel("fixture", lp.Minimize)
	x, y := lp.NewContinuous("x"), lp.NewBinary("y")
	require.NoError(t, m.AddConstraint(lp.NewConstraint("need", lp.Sum(x, y), lp.GE, 4)))
	require.NoError(t, m.SetObjective(lp.Sum(x).AddTerm(y, 3).Add(lp.Const(2))))
	return m, x, y
}

func TestReadSolution(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		status lp.Status
		x, y   float64
	}{
		{
			name: "basic optimal",
			input: `c Problem:    fixture
c Rows:       1
s bas 1 2 f f 4
i 1 b 4 0
j 1 b 4 0
j 2 l 0 3
e o f
`,
			status: lp.StatusOptimal, x: 4, y: 0,
		},
		{
			name: "mip optimal",
			input: `c Problem:    fixture
s mip 1 2 o 6
i 1 4
j 1 3
j 2 1
e o f
`,
			status: lp.StatusOptimal, x: 3, y: 1,
		},
		{
			name:   "basic infeasible",
			input:  "s bas 1 2 n f 0\nj 1 b 0 0\nj 2 b 0 0\ne o f\n",
			status: lp.StatusInfeasible,
		},
		{
			name:   "basic unbounded",
			input:  "s bas 1 2 f n 0\ne o f\n",
			status: lp.StatusUnbounded,
		},
		{
			name:   "mip infeasible",
			input:  "s mip 1 2 n 0\ne o f\n",
			status: lp.StatusInfeasible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, x, y := model(t)
			sol, err := ReadSolution(strings.NewReader(tt.input), m)
			require.NoError(t, err)
			assert.Equal(t, tt.status, sol.Status)
			if tt.status != lp.StatusOptimal {
				assert.Empty(t, sol.Values)
				return
			}
			assert.Equal(t, tt.x, sol.Value(m, x))
			assert.Equal(t, tt.y, sol.Value(m, y))
			assert.Equal(t, tt.x+3*tt.y+2, sol.Objective)
		})
	}
}

func TestReadSolutionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"column before status", "j 1 b 4 0\n"},
		{"column out of range", "s bas 1 2 f f 0\nj 3 b 4 0\n"},
		{"bad value", "s mip 1 2 o 0\nj 1 abc\n"},
		{"interior point", "s ipt 1 2 o 0\n"},
		{"unknown record", "s bas 1 2 f f 0\nx 1\n"},
		{"stopped mip", "s mip 1 2 f 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := model(t)
			_, err := ReadSolution(strings.NewReader(tt.input), m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeSolver))
		})
	}
}

func TestMissingBinary(t *testing.T) {
	s := New(Options{Binary: "definitely-not-glpsol-xyz"})
	assert.False(t, s.Available())

	m, _, _ := model(t)
	_, err := s.Solve(context.Background(), m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSolver))
}

func TestSolveWithGLPSOL(t *testing.T) {
	s := New(Options{})
	if !s.Available() {
		t.Skip("glpsol not installed")
	}

	m, x, y := model(t)
	sol, err := s.Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, lp.StatusOptimal, sol.Status)
	assert.InDelta(t, 4, sol.Value(m, x), 1e-6)
	assert.InDelta(t, 0, sol.Value(m, y), 1e-6)
	assert.InDelta(t, 6, sol.Objective, 1e-6)
}
