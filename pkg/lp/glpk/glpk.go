// Package glpk solves lp models with the GLPK command-line solver.
//
// The model is written as free MPS, glpsol is run as a child process and
// its plain-text solution file is parsed back. Requires glpsol on PATH
// (apt install glpk-utils, brew install glpk) or an explicit binary path.
package glpk

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
)

// DefaultBinary is the solver executable looked up on PATH.
const DefaultBinary = "glpsol"

// Options configures the solver.
type Options struct {
	// Binary is the glpsol executable. Defaults to DefaultBinary.
	Binary string
	// Dir is where temporary model files are created. Defaults to os.TempDir.
	Dir string
	// Args are extra command-line arguments passed before the model file.
	Args []string
}

// Solver implements lp.Solver by running glpsol.
type Solver struct {
	opts Options
}

// New returns a solver with the given options.
func New(opts Options) *Solver {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	return &Solver{opts: opts}
}

// Available reports whether the glpsol binary can be found.
func (s *Solver) Available() bool {
	_, err := exec.LookPath(s.opts.Binary)
	return err == nil
}

// Solve implements lp.Solver.
func (s *Solver) Solve(ctx context.Context, m *lp.Model) (*lp.Solution, error) {
	if !s.Available() {
		return nil, errors.New(errors.ErrCodeSolver, "%s not found; install GLPK (apt install glpk-utils, brew install glpk)", s.opts.Binary)
	}

	dir, err := os.MkdirTemp(s.opts.Dir, "chainopt-glpk-")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create temp dir")
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, "model.mps")
	solPath := filepath.Join(dir, "solution.txt")

	f, err := os.Create(modelPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create model file")
	}
	if err := lp.WriteMPS(f, m); err != nil {
		f.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write model")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write model")
	}

	args := append([]string{}, s.opts.Args...)
	args = append(args, "--freemps", modelPath, "-w", solPath)
	cmd := exec.CommandContext(ctx, s.opts.Binary, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeSolver, err, "glpsol: %s", lastLine(out.String()))
	}

	sf, err := os.Open(solPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSolver, err, "glpsol wrote no solution: %s", lastLine(out.String()))
	}
	defer sf.Close()

	return ReadSolution(sf, m)
}

// ReadSolution parses a GLPK plain-text solution (glpsol -w) for m.
//
// Basic and MIP solutions are understood; interior-point output is not.
// Column values are read positionally, matching the C<j> names written
// by lp.WriteMPS. The objective is recomputed from the values so that it
// includes the model's constant and is reported in the model's own sense.
func ReadSolution(r io.Reader, m *lp.Model) (*lp.Solution, error) {
	n := len(m.Vars())
	values := make([]float64, n)

	var (
		kind   string
		status lp.Status
		msg    string
		seen   bool
	)

	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "c", "i", "e":
			// Comments, rows and the end marker carry nothing we need.
		case "s":
			if len(fields) < 2 {
				return nil, parseError(line, "short status line")
			}
			kind = fields[1]
			var err error
			status, msg, err = parseStatus(kind, fields)
			if err != nil {
				return nil, parseError(line, err.Error())
			}
			seen = true
		case "j":
			if !seen {
				return nil, parseError(line, "column before status line")
			}
			j, v, err := parseColumn(kind, fields)
			if err != nil {
				return nil, parseError(line, err.Error())
			}
			if j < 1 || j > n {
				return nil, parseError(line, fmt.Sprintf("column %d out of range 1..%d", j, n))
			}
			values[j-1] = v
		default:
			return nil, parseError(line, fmt.Sprintf("unexpected record %q", fields[0]))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSolver, err, "read glpsol solution")
	}
	if !seen {
		return nil, errors.New(errors.ErrCodeSolver, "glpsol solution has no status line")
	}

	switch status {
	case lp.StatusOptimal:
		for j := range values {
			if values[j] < 0 {
				values[j] = 0
			}
		}
		return &lp.Solution{Status: status, Objective: lp.Evaluate(m, values), Values: values}, nil
	case lp.StatusInfeasible:
		return lp.Infeasible(msg), nil
	case lp.StatusUnbounded:
		return lp.Unbounded(msg), nil
	default:
		return nil, errors.New(errors.ErrCodeSolver, "glpsol: %s", msg)
	}
}

// parseStatus interprets "s bas m n pst dst obj" and "s mip m n st obj".
func parseStatus(kind string, f []string) (lp.Status, string, error) {
	switch kind {
	case "bas":
		if len(f) < 6 {
			return lp.StatusUnknown, "", fmt.Errorf("basic status needs 7 fields, got %d", len(f))
		}
		primal, dual := f[4], f[5]
		switch {
		case primal == "f" && dual == "f":
			return lp.StatusOptimal, "", nil
		case primal == "n" || primal == "i":
			return lp.StatusInfeasible, "no primal feasible solution", nil
		case primal == "f" && dual == "n":
			return lp.StatusUnbounded, "no dual feasible solution", nil
		}
		return lp.StatusError, fmt.Sprintf("undefined basic solution (primal %s, dual %s)", primal, dual), nil
	case "mip":
		if len(f) < 5 {
			return lp.StatusUnknown, "", fmt.Errorf("mip status needs 6 fields, got %d", len(f))
		}
		switch f[4] {
		case "o":
			return lp.StatusOptimal, "", nil
		case "n":
			return lp.StatusInfeasible, "no integer feasible solution", nil
		case "u":
			// glpsol skips the search when the relaxation has no optimum.
			return lp.StatusInfeasible, "relaxation has no optimal solution", nil
		}
		return lp.StatusError, fmt.Sprintf("integer search stopped early (status %s)", f[4]), nil
	}
	return lp.StatusUnknown, "", fmt.Errorf("unsupported solution kind %q", kind)
}

// parseColumn interprets "j j st prim dual" (bas) and "j j val" (mip).
func parseColumn(kind string, f []string) (int, float64, error) {
	valueField := 3
	if kind == "mip" {
		valueField = 2
	}
	if len(f) <= valueField {
		return 0, 0, fmt.Errorf("column record has %d fields", len(f))
	}
	j, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, 0, fmt.Errorf("column number: %w", err)
	}
	v, err := strconv.ParseFloat(f[valueField], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("column value: %w", err)
	}
	return j, v, nil
}

func parseError(line int, msg string) error {
	return errors.New(errors.ErrCodeSolver, "glpsol solution line %d: %s", line, msg)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

var _ lp.Solver = (*Solver)(nil)
