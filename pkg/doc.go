// Package pkg provides the libraries behind chainopt.
//
// # Overview
//
// chainopt compiles multi-echelon supply-chain networks into linear
// programs and solves them for the cheapest feasible flow. The pkg
// directory is organized as:
//
//  1. [chain] - the network model and its compilation to an LP
//  2. [lp] - the solver-neutral model, MPS export and solver backends
//     ([lp/simplex] in-process, [lp/glpk] via glpsol)
//  3. [scenario] - TOML/YAML network descriptions
//  4. [cache] - solution caching (file, Redis)
//  5. [render] - Graphviz diagrams of networks and solved plans
//  6. [observability] - solve and cache hooks, Prometheus metrics
//  7. [errors] - coded errors shared by all packages
//
// # Architecture
//
// The typical data flow through chainopt:
//
//	scenario file (TOML/YAML)
//	         ↓
//	    [scenario] package (decode + validate)
//	         ↓
//	    [chain] package (layers, arcs → lp.Model)
//	         ↓
//	    [cache] Solver → [lp/simplex] or [lp/glpk]
//	         ↓
//	    cost, flows, open locations, diagrams
//
// [chain]: github.com/chainopt/chainopt/pkg/chain
// [lp]: github.com/chainopt/chainopt/pkg/lp
// [lp/simplex]: github.com/chainopt/chainopt/pkg/lp/simplex
// [lp/glpk]: github.com/chainopt/chainopt/pkg/lp/glpk
// [scenario]: github.com/chainopt/chainopt/pkg/scenario
// [cache]: github.com/chainopt/chainopt/pkg/cache
// [render]: github.com/chainopt/chainopt/pkg/render
// [observability]: github.com/chainopt/chainopt/pkg/observability
// [errors]: github.com/chainopt/chainopt/pkg/errors
package pkg
