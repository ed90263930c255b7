package chain

import (
	"fmt"
	"math"
	"slices"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
)

// Unconstrained marks a node without a bound. Any infinite or NaN bound is
// treated the same way.
var Unconstrained = math.Inf(1)

// Kind is the closed set of layer variants.
type Kind int

const (
	// Supply layers bound each node's outflow from above.
	Supply Kind = iota
	// Demand layers bound each node's inflow from below.
	Demand
	// Transshipment layers balance each node's inflow and outflow.
	Transshipment
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case Demand:
		return "demand"
	case Transshipment:
		return "transshipment"
	default:
		return "supply"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "supply":
		return Supply, nil
	case "demand":
		return Demand, nil
	case "transshipment":
		return Transshipment, nil
	}
	return Supply, errors.New(errors.ErrCodeInvalidInput, "unknown layer kind %q (must be supply, demand or transshipment)", s)
}

// Layer is a named group of network nodes.
//
// The size is fixed at construction from the number of bounds. A layer
// takes part in at most one inbound and one outbound arc block; multi-hop
// networks chain layers instead.
type Layer struct {
	name   string
	kind   Kind
	bounds []float64

	selectable bool
	pmin, pmax int
	fixedCosts []float64
	open       []*lp.Var // selectable layers only
	pinned     []int     // set by SetOpenIndicators

	in, out *ArcBlock
	distance [][]float64
	los      []losConstraint

	chain *Chain
}

// LayerOption configures a layer at construction.
type LayerOption func(*Layer)

// WithSelectableLocations gives every node a binary open/closed decision.
func WithSelectableLocations() LayerOption { return func(l *Layer) { l.selectable = true } }

// WithOpenRange bounds the number of open nodes. It implies
// WithSelectableLocations.
func WithOpenRange(pmin, pmax int) LayerOption {
	return func(l *Layer) {
		l.selectable = true
		l.pmin, l.pmax = pmin, pmax
	}
}

// WithFixedCosts sets the cost incurred by each open node.
func WithFixedCosts(costs []float64) LayerOption {
	return func(l *Layer) { l.fixedCosts = slices.Clone(costs) }
}

// NewSupply creates a supply layer; capacities bound each node's outflow.
func NewSupply(name string, capacities []float64, opts ...LayerOption) (*Layer, error) {
	return newLayer(Supply, name, capacities, opts)
}

// NewDemand creates a demand layer; requirements bound each node's inflow.
func NewDemand(name string, requirements []float64, opts ...LayerOption) (*Layer, error) {
	return newLayer(Demand, name, requirements, opts)
}

// NewTransshipment creates a transshipment layer; caps bound each node's
// throughput. Use Unconstrained for uncapped nodes.
func NewTransshipment(name string, caps []float64, opts ...LayerOption) (*Layer, error) {
	return newLayer(Transshipment, name, caps, opts)
}

// NewLayer creates a layer of the given kind.
func NewLayer(kind Kind, name string, bounds []float64, opts ...LayerOption) (*Layer, error) {
	return newLayer(kind, name, bounds, opts)
}

func newLayer(kind Kind, name string, bounds []float64, opts []LayerOption) (*Layer, error) {
	if err := errors.ValidateName("layer", name); err != nil {
		return nil, err
	}
	if len(bounds) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layer %q has no nodes", name)
	}
	for i, b := range bounds {
		if !unconstrained(b) && b < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "layer %q: bound of node %d is negative (%v)", name, i+1, b)
		}
	}

	l := &Layer{
		name:   name,
		kind:   kind,
		bounds: slices.Clone(bounds),
		pmin:   0,
		pmax:   -1,
	}
	for _, opt := range opts {
		opt(l)
	}

	n := len(bounds)
	if l.pmax < 0 {
		l.pmax = n
	}
	if l.pmin < 0 || l.pmin > l.pmax || l.pmax > n {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layer %q: open range [%d, %d] not within [0, %d]", name, l.pmin, l.pmax, n)
	}

	if l.fixedCosts == nil {
		l.fixedCosts = make([]float64, n)
	}
	if len(l.fixedCosts) != n {
		return nil, errors.Dimension(fmt.Sprintf("layer %q fixed costs", name), n, len(l.fixedCosts))
	}
	for i, f := range l.fixedCosts {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.New(errors.ErrCodeNonFinite, "layer %q: fixed cost of node %d is %v", name, i+1, f)
		}
	}

	if l.selectable {
		l.open = make([]*lp.Var, n)
		for i := range l.open {
			l.open[i] = lp.NewBinary(fmt.Sprintf("%s.open[%d]", name, i+1))
		}
	}
	return l, nil
}

// Name returns the layer's name.
func (l *Layer) Name() string { return l.name }

// Kind returns the layer variant.
func (l *Layer) Kind() Kind { return l.kind }

// Size returns the number of nodes.
func (l *Layer) Size() int { return len(l.bounds) }

// Bounds returns a copy of the per-node bounds.
func (l *Layer) Bounds() []float64 { return slices.Clone(l.bounds) }

// Selectable reports whether node locations are decisions.
func (l *Layer) Selectable() bool { return l.selectable }

// OpenRange returns the bounds on the number of open nodes.
func (l *Layer) OpenRange() (pmin, pmax int) { return l.pmin, l.pmax }

// FixedCosts returns a copy of the per-node fixed costs.
func (l *Layer) FixedCosts() []float64 { return slices.Clone(l.fixedCosts) }

// OpenIndicators returns the binary open variables, or nil for layers with
// fixed locations.
func (l *Layer) OpenIndicators() []*lp.Var { return l.open }

// Pinned returns the assignment set by SetOpenIndicators, or nil.
func (l *Layer) Pinned() []int { return slices.Clone(l.pinned) }

// Chain returns the chain the layer is attached to, or nil.
func (l *Layer) Chain() *Chain { return l.chain }

// InArcs returns the inbound arc block, or nil.
func (l *Layer) InArcs() *ArcBlock { return l.in }

// OutArcs returns the outbound arc block, or nil.
func (l *Layer) OutArcs() *ArcBlock { return l.out }

// Distance returns the distance matrix aligned with the inbound arcs.
func (l *Layer) Distance() [][]float64 { return l.distance }

// InputTotals returns each node's inflow as a linear expression. The result
// is empty when the layer has no inbound arcs.
func (l *Layer) InputTotals() []lp.Expr {
	if l.in == nil || len(l.in.Flows) == 0 {
		return nil
	}
	totals := make([]lp.Expr, len(l.in.Flows[0]))
	for _, row := range l.in.Flows {
		for j, v := range row {
			totals[j] = totals[j].AddTerm(v, 1)
		}
	}
	return totals
}

// OutputTotals returns each node's outflow as a linear expression. The
// result is empty when the layer has no outbound arcs.
func (l *Layer) OutputTotals() []lp.Expr {
	if l.out == nil {
		return nil
	}
	totals := make([]lp.Expr, len(l.out.Flows))
	for i, row := range l.out.Flows {
		totals[i] = lp.Sum(row...)
	}
	return totals
}

// SetOpenIndicators fixes which nodes are open.
//
// Every entry must be 0 or 1, the length must match the layer size and the
// number of open nodes must lie within the open range. Nothing changes on
// failure. On success the owning chain is marked dirty.
func (l *Layer) SetOpenIndicators(assignment []int) error {
	if len(assignment) != l.Size() {
		return errors.Wrap(errors.ErrCodeInvalidIndicators,
			&errors.DimensionError{What: "open indicators", Want: l.Size(), Got: len(assignment)},
			"layer %q: %d indicators for %d nodes", l.name, len(assignment), l.Size())
	}
	count := 0
	for i, a := range assignment {
		if a != 0 && a != 1 {
			return errors.New(errors.ErrCodeInvalidIndicators, "layer %q: indicator %d is %d, must be 0 or 1", l.name, i+1, a)
		}
		count += a
	}
	if count < l.pmin || count > l.pmax {
		return errors.New(errors.ErrCodeInvalidIndicators, "layer %q: %d open nodes outside [%d, %d]", l.name, count, l.pmin, l.pmax)
	}
	l.pinned = slices.Clone(assignment)
	l.touch()
	return nil
}

// ClearOpenIndicators releases an assignment made by SetOpenIndicators.
func (l *Layer) ClearOpenIndicators() {
	if l.pinned == nil {
		return
	}
	l.pinned = nil
	l.touch()
}

// SetDistance attaches a distance matrix to a demand layer's inbound arcs.
// The matrix must have the shape of the inbound arc block.
func (l *Layer) SetDistance(distance [][]float64) error {
	if l.kind != Demand {
		return errors.New(errors.ErrCodeUnsupported, "layer %q: distances only apply to demand layers", l.name)
	}
	rows, cols := 0, 0
	if l.in != nil {
		rows, cols = l.in.Shape()
	}
	if err := errors.ValidateShape(fmt.Sprintf("layer %q distance", l.name), distance, rows, cols); err != nil {
		return err
	}
	if err := errors.ValidateMatrix("distance", distance, false); err != nil {
		return err
	}
	l.distance = cloneMatrix(distance)
	l.touch()
	return nil
}

// AddLOSConstraint adds the level-of-service constraint
// metric(inbound flows, distance) (sense) threshold to a demand layer.
// It is evaluated when the chain builds its model.
func (l *Layer) AddLOSConstraint(name string, metric Metric, sense lp.Sense, threshold float64) error {
	if l.kind != Demand {
		return errors.New(errors.ErrCodeUnsupported, "layer %q: level-of-service constraints only apply to demand layers", l.name)
	}
	if err := errors.ValidateName("level-of-service constraint", name); err != nil {
		return err
	}
	if metric == nil {
		return errors.New(errors.ErrCodeInvalidInput, "level-of-service constraint %q has no metric", name)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return errors.New(errors.ErrCodeNonFinite, "level-of-service constraint %q: threshold is %v", name, threshold)
	}
	for _, c := range l.los {
		if c.name == name {
			return errors.New(errors.ErrCodeDuplicateConstraint, "layer %q already has level-of-service constraint %q", l.name, name)
		}
	}
	l.los = append(l.los, losConstraint{name: name, metric: metric, sense: sense, threshold: threshold})
	l.touch()
	return nil
}

// LOSConstraints returns the names of the layer's level-of-service
// constraints in insertion order.
func (l *Layer) LOSConstraints() []string {
	names := make([]string, len(l.los))
	for i, c := range l.los {
		names[i] = c.name
	}
	return names
}

// TotalDemand returns the sum of the layer's finite bounds.
func (l *Layer) TotalDemand() float64 {
	var total float64
	for _, b := range l.bounds {
		if !unconstrained(b) {
			total += b
		}
	}
	return total
}

// isOpen returns the fixed open value of node i for layers without
// location decisions.
func (l *Layer) isOpen(i int) bool {
	return l.pinned == nil || l.pinned[i] == 1
}

// throughput is the flow a link constraint gates: outflow when the layer
// ships onwards, inflow otherwise.
func (l *Layer) throughput() []lp.Expr {
	if l.out != nil {
		return l.OutputTotals()
	}
	return l.InputTotals()
}

// detachArcs drops the layer's arc references.
func (l *Layer) detachArcs() {
	l.in, l.out = nil, nil
	l.distance = nil
}

func (l *Layer) touch() {
	if l.chain != nil {
		l.chain.markDirty()
	}
}

func unconstrained(v float64) bool { return math.IsInf(v, 0) || math.IsNaN(v) }

func cloneMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = slices.Clone(row)
	}
	return out
}
