package chain

import (
	"fmt"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
)

// Constraints returns the layer's flow constraints: capacities for supply
// layers, requirements for demand layers, balance and caps for
// transshipment layers. It fails with DIMENSION_MISMATCH when the arc
// totals do not line up with the layer size, which includes layers that
// are not connected on the side their kind needs.
func (l *Layer) Constraints() ([]lp.Constraint, error) {
	switch l.kind {
	case Supply:
		return l.supplyConstraints()
	case Demand:
		return l.demandConstraints()
	case Transshipment:
		return l.transshipmentConstraints()
	}
	return nil, errors.New(errors.ErrCodeInternal, "layer %q has unknown kind %d", l.name, l.kind)
}

func (l *Layer) supplyConstraints() ([]lp.Constraint, error) {
	out := l.OutputTotals()
	if len(out) != l.Size() {
		return nil, errors.Dimension(fmt.Sprintf("layer %q outbound totals", l.name), l.Size(), len(out))
	}
	var cons []lp.Constraint
	for i, b := range l.bounds {
		if unconstrained(b) {
			continue
		}
		cons = append(cons, lp.NewConstraint(l.rowName("capacity", i), out[i], lp.LE, b))
	}
	return cons, nil
}

func (l *Layer) demandConstraints() ([]lp.Constraint, error) {
	in := l.InputTotals()
	if len(in) != l.Size() {
		return nil, errors.Dimension(fmt.Sprintf("layer %q inbound totals", l.name), l.Size(), len(in))
	}
	var cons []lp.Constraint
	for i, b := range l.bounds {
		if unconstrained(b) {
			continue
		}
		cons = append(cons, lp.NewConstraint(l.rowName("demand", i), in[i], lp.GE, b))
	}
	return cons, nil
}

func (l *Layer) transshipmentConstraints() ([]lp.Constraint, error) {
	in, out := l.InputTotals(), l.OutputTotals()
	if len(in) != len(out) {
		return nil, errors.Dimension(fmt.Sprintf("layer %q outbound totals", l.name), len(in), len(out))
	}
	if len(in) != l.Size() {
		return nil, errors.Dimension(fmt.Sprintf("layer %q inbound totals", l.name), l.Size(), len(in))
	}
	cons := make([]lp.Constraint, 0, 2*l.Size())
	for i := range l.bounds {
		cons = append(cons, lp.NewConstraint(l.rowName("balance", i), in[i].Sub(out[i]), lp.EQ, 0))
	}
	for i, b := range l.bounds {
		if unconstrained(b) {
			continue
		}
		cons = append(cons, lp.NewConstraint(l.rowName("throughput", i), in[i], lp.LE, b))
	}
	return cons, nil
}

// LocationConstraints returns the facility-location rows of the layer.
//
// Selectable layers get pmin <= Σ open <= pmax, the link rows
// throughput[i] <= M_i·open[i] and, while pinned, open[i] = assignment[i].
// Layers with fixed locations only get throughput[i] <= 0 for nodes pinned
// closed. M_i is the node's bound when it is a finite capacity, bigM
// otherwise.
func (l *Layer) LocationConstraints(bigM float64) []lp.Constraint {
	flow := l.throughput()
	at := func(i int) lp.Expr {
		if i < len(flow) {
			return flow[i]
		}
		return lp.Expr{}
	}

	if !l.selectable {
		var cons []lp.Constraint
		for i := range l.bounds {
			if !l.isOpen(i) {
				cons = append(cons, lp.NewConstraint(l.rowName("closed", i), at(i), lp.LE, 0))
			}
		}
		return cons
	}

	total := lp.Sum(l.open...)
	cons := []lp.Constraint{
		lp.NewConstraint(l.name+".pmin", total, lp.GE, float64(l.pmin)),
		lp.NewConstraint(l.name+".pmax", total, lp.LE, float64(l.pmax)),
	}
	for i, y := range l.open {
		cons = append(cons, lp.NewConstraint(l.rowName("link", i), at(i).AddTerm(y, -l.bigM(i, bigM)), lp.LE, 0))
	}
	if l.pinned != nil {
		for i, y := range l.open {
			cons = append(cons, lp.NewConstraint(l.rowName("pin", i), lp.Sum(y), lp.EQ, float64(l.pinned[i])))
		}
	}
	return cons
}

// bigM returns the link coefficient of node i.
func (l *Layer) bigM(i int, fallback float64) float64 {
	b := l.bounds[i]
	if l.kind != Demand && !unconstrained(b) {
		return b
	}
	return fallback
}

// LOSRows evaluates the layer's level-of-service constraints against its
// current inbound arcs and distance matrix.
func (l *Layer) LOSRows() ([]lp.Constraint, error) {
	if len(l.los) == 0 {
		return nil, nil
	}
	rows, cols := 0, 0
	if l.in != nil {
		rows, cols = l.in.Shape()
	}
	if err := errors.ValidateShape(fmt.Sprintf("layer %q distance", l.name), l.distance, rows, cols); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.Dimension(fmt.Sprintf("layer %q inbound totals", l.name), l.Size(), 0)
	}
	total := l.TotalDemand()
	if total <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layer %q: level-of-service needs a positive total demand", l.name)
	}

	cons := make([]lp.Constraint, 0, len(l.los))
	for _, c := range l.los {
		e := c.metric(l.in.Flows, l.distance, total)
		cons = append(cons, lp.NewConstraint(l.name+".los."+c.name, e, c.sense, c.threshold))
	}
	return cons, nil
}

// FixedCostExpr returns Σ fixedCost[i]·open[i]. For layers with fixed
// locations the indicators are constants and so is the result.
func (l *Layer) FixedCostExpr() lp.Expr {
	var e lp.Expr
	for i, f := range l.fixedCosts {
		if f == 0 {
			continue
		}
		if l.selectable {
			e = e.AddTerm(l.open[i], f)
		} else if l.isOpen(i) {
			e = e.Add(lp.Const(f))
		}
	}
	return e
}

func (l *Layer) rowName(kind string, i int) string {
	return fmt.Sprintf("%s.%s[%d]", l.name, kind, i+1)
}
