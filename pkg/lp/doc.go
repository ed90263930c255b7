// Package lp defines the narrow contract between the network compiler and
// an external linear or mixed-integer programming solver.
//
// # Overview
//
// A [Model] is an ephemeral bag of decision variables ([Var]), named linear
// constraints ([Constraint]) and one linear objective ([Expr]). Models are
// built, handed to a [Solver] and thrown away; they carry no state between
// solves. Variables, on the other hand, are long-lived handles: the same
// *Var may appear in many models over its lifetime, and a model identifies
// variables by pointer.
//
// # Variables
//
// Every variable is non-negative. Continuous variables are bounded above by
// [Var.Upper] (+Inf unless stated otherwise); binary variables take values
// in {0, 1}. An upper bound of zero pins a variable to zero, which is how
// forbidden arcs reach the solver.
//
// # Numeric safety
//
// [Model.AddConstraint] and [Model.SetObjective] reject NaN and ±Inf
// coefficients. A solver never sees a non-finite number.
//
// # Solvers
//
// The [Solver] interface is deliberately small. Infeasible and unbounded
// models are reported through [Solution.Status]; the error return is
// reserved for failures of the solver itself (a crashed process, a
// numerical breakdown, a cancelled context).
//
// Two implementations ship with chainopt: package simplex solves models
// in-process on top of gonum, and package glpk drives the glpsol binary.
// [WriteMPS] exports a model in free MPS format for any other tool.
package lp
