package lp

import "math"

// Domain is the value domain of a decision variable.
type Domain int

const (
	// Continuous variables take any value in [0, Upper].
	Continuous Domain = iota
	// Binary variables take a value in {0, 1}.
	Binary
)

// String returns the lower-case domain name.
func (d Domain) String() string {
	if d == Binary {
		return "binary"
	}
	return "continuous"
}

// Var is a decision variable handle.
//
// The zero value is not usable - create variables with [NewContinuous] or
// [NewBinary]. Models index variables by pointer, so a *Var must not be
// copied by value once it has been added to an expression.
type Var struct {
	Name   string  // Unique within any model the variable joins
	Domain Domain  // Continuous or Binary
	Upper  float64 // Upper bound; +Inf for unbounded, 1 for binaries
}

// NewContinuous creates a non-negative continuous variable with no upper bound.
func NewContinuous(name string) *Var {
	return &Var{Name: name, Domain: Continuous, Upper: math.Inf(1)}
}

// NewBinary creates a {0, 1} variable.
func NewBinary(name string) *Var {
	return &Var{Name: name, Domain: Binary, Upper: 1}
}

// Fixed reports whether the variable is pinned to zero by its upper bound.
func (v *Var) Fixed() bool { return v.Upper == 0 }

// Term is one coefficient-variable product of a linear expression.
type Term struct {
	Var  *Var
	Coef float64
}

// Expr is a linear expression Σ coef·var + Constant.
//
// Expr values are immutable in practice: every method returns a new
// expression and never writes to the receiver's term slice.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum returns the expression v1 + v2 + ... + vn.
func Sum(vars ...*Var) Expr {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return Expr{Terms: terms}
}

// Const returns a constant expression.
func Const(c float64) Expr { return Expr{Constant: c} }

// AddTerm returns e + coef·v.
func (e Expr) AddTerm(v *Var, coef float64) Expr {
	terms := make([]Term, len(e.Terms), len(e.Terms)+1)
	copy(terms, e.Terms)
	return Expr{Terms: append(terms, Term{Var: v, Coef: coef}), Constant: e.Constant}
}

// Add returns e + o.
func (e Expr) Add(o Expr) Expr {
	terms := make([]Term, 0, len(e.Terms)+len(o.Terms))
	terms = append(terms, e.Terms...)
	terms = append(terms, o.Terms...)
	return Expr{Terms: terms, Constant: e.Constant + o.Constant}
}

// Sub returns e - o.
func (e Expr) Sub(o Expr) Expr { return e.Add(o.Scale(-1)) }

// Scale returns k·e.
func (e Expr) Scale(k float64) Expr {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Var: t.Var, Coef: k * t.Coef}
	}
	return Expr{Terms: terms, Constant: k * e.Constant}
}

// Simplify merges repeated variables and drops zero coefficients.
// Variables keep the order of their first appearance.
func (e Expr) Simplify() Expr {
	pos := make(map[*Var]int, len(e.Terms))
	terms := make([]Term, 0, len(e.Terms))
	for _, t := range e.Terms {
		if i, ok := pos[t.Var]; ok {
			terms[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(terms)
		terms = append(terms, t)
	}
	out := terms[:0]
	for _, t := range terms {
		if t.Coef != 0 {
			out = append(out, t)
		}
	}
	return Expr{Terms: out, Constant: e.Constant}
}

// Vars returns the distinct variables of e in order of first appearance.
func (e Expr) Vars() []*Var {
	seen := make(map[*Var]bool, len(e.Terms))
	var vars []*Var
	for _, t := range e.Terms {
		if !seen[t.Var] {
			seen[t.Var] = true
			vars = append(vars, t.Var)
		}
	}
	return vars
}

// Eval evaluates e with variable values supplied by value.
func (e Expr) Eval(value func(*Var) float64) float64 {
	total := e.Constant
	for _, t := range e.Terms {
		total += t.Coef * value(t.Var)
	}
	return total
}

// finite reports whether every coefficient and the constant are finite.
func (e Expr) finite() (Term, bool) {
	for _, t := range e.Terms {
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return t, false
		}
	}
	return Term{}, !math.IsNaN(e.Constant) && !math.IsInf(e.Constant, 0)
}
