package lp

import "strings"

// Status is the outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusError
)

var statusNames = map[Status]string{
	StatusUnknown:    "unknown",
	StatusOptimal:    "optimal",
	StatusInfeasible: "infeasible",
	StatusUnbounded:  "unbounded",
	StatusError:      "error",
}

// String returns the lower-case status name.
func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) Status {
	for st, n := range statusNames {
		if strings.EqualFold(n, s) {
			return st
		}
	}
	return StatusUnknown
}

// Solution is a solver's answer for one model.
type Solution struct {
	Status    Status    `json:"status"`
	Objective float64   `json:"objective"`
	Values    []float64 `json:"values,omitempty"` // aligned with Model.Vars; empty unless optimal
	Message   string    `json:"message,omitempty"`
}

// Optimal reports whether the solution carries values.
func (s *Solution) Optimal() bool { return s != nil && s.Status == StatusOptimal }

// Value returns the solved value of v, or 0 if v is not a column of m or
// the solution has no values.
func (s *Solution) Value(m *Model, v *Var) float64 {
	i, ok := m.Index(v)
	if !ok || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

// Evaluate computes the objective (constant included) of m at values.
func Evaluate(m *Model, values []float64) float64 {
	return m.Objective().Eval(func(v *Var) float64 {
		if i, ok := m.Index(v); ok && i < len(values) {
			return values[i]
		}
		return 0
	})
}

// Infeasible returns a solution with StatusInfeasible.
func Infeasible(msg string) *Solution {
	return &Solution{Status: StatusInfeasible, Message: msg}
}

// Unbounded returns a solution with StatusUnbounded.
func Unbounded(msg string) *Solution {
	return &Solution{Status: StatusUnbounded, Message: msg}
}
