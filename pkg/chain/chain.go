package chain

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
	"github.com/chainopt/chainopt/pkg/lp/simplex"
)

// DefaultBigM is the link coefficient used for nodes without a finite
// capacity.
const DefaultBigM = 1e6

// WarningCode identifies a non-fatal registry event.
type WarningCode string

const (
	// WarnDuplicateLayer: a layer was added under a name already in use and
	// replaced the previous entry.
	WarnDuplicateLayer WarningCode = "DUPLICATE_LAYER"
	// WarnLayerRebound: the layer was attached to another chain and has
	// moved to this one.
	WarnLayerRebound WarningCode = "LAYER_REBOUND"
	// WarnLayerAbsent: the layer to remove is not registered.
	WarnLayerAbsent WarningCode = "LAYER_ABSENT"
)

// Warning reports a registry operation that went ahead with overwrite or
// no-op semantics. A nil *Warning means the operation was clean.
type Warning struct {
	Code    WarningCode
	Layer   string
	Message string
}

// String returns "CODE: message".
func (w *Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Chain is a supply-chain network and the solve state derived from it.
type Chain struct {
	name   string
	sense  lp.ObjectiveSense
	solver lp.Solver
	logger *log.Logger
	bigM   float64

	layers []*Layer
	arcs   []*ArcBlock

	dirty  bool
	status lp.Status
	result *Result
}

// Option configures a Chain.
type Option func(*Chain)

// WithSense sets the optimisation direction. The default is lp.Minimize.
func WithSense(s lp.ObjectiveSense) Option { return func(c *Chain) { c.sense = s } }

// WithSolver sets the solver. The default is the in-process simplex solver.
func WithSolver(s lp.Solver) Option {
	return func(c *Chain) {
		if s != nil {
			c.solver = s
		}
	}
}

// WithLogger sets the logger for warnings and solve progress. The default
// discards everything.
func WithLogger(l *log.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBigM sets the link coefficient for nodes without a finite capacity.
// Non-positive values are ignored.
func WithBigM(m float64) Option {
	return func(c *Chain) {
		if m > 0 {
			c.bigM = m
		}
	}
}

// New creates an empty chain.
func New(name string, opts ...Option) *Chain {
	c := &Chain{
		name:   name,
		sense:  lp.Minimize,
		solver: simplex.New(simplex.Options{}),
		logger: log.New(io.Discard),
		bigM:   DefaultBigM,
		dirty:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the chain's name.
func (c *Chain) Name() string { return c.name }

// Sense returns the optimisation direction.
func (c *Chain) Sense() lp.ObjectiveSense { return c.sense }

// BigM returns the link coefficient for nodes without a finite capacity.
func (c *Chain) BigM() float64 { return c.bigM }

// Dirty reports whether the network changed since the last successful
// solve.
func (c *Chain) Dirty() bool { return c.dirty }

// Status returns the status of the most recent solve, or lp.StatusUnknown
// before the first one.
func (c *Chain) Status() lp.Status { return c.status }

// Layers returns the registered layers in registration order.
func (c *Chain) Layers() []*Layer { return slices.Clone(c.layers) }

// Layer looks up a registered layer by name.
func (c *Chain) Layer(name string) (*Layer, bool) {
	i := c.layerIndex(name)
	if i < 0 {
		return nil, false
	}
	return c.layers[i], true
}

// Arcs returns the arc blocks in connection order.
func (c *Chain) Arcs() []*ArcBlock { return slices.Clone(c.arcs) }

// AddLayer registers l and binds it to the chain.
//
// Adding a layer under a name already in use replaces the old entry
// (returning WarnDuplicateLayer); the replaced layer loses its arcs. A
// layer bound to another chain moves here (WarnLayerRebound).
func (c *Chain) AddLayer(l *Layer) *Warning {
	var w *Warning
	if i := c.layerIndex(l.name); i >= 0 {
		old := c.layers[i]
		if old != l {
			c.purgeArcs(old)
			old.chain = nil
		}
		c.layers[i] = l
		w = &Warning{Code: WarnDuplicateLayer, Layer: l.name,
			Message: fmt.Sprintf("layer %q already in chain %q; old layer has been overwritten", l.name, c.name)}
	} else {
		c.layers = append(c.layers, l)
	}

	if l.chain != nil && l.chain != c {
		rebound := &Warning{Code: WarnLayerRebound, Layer: l.name,
			Message: fmt.Sprintf("layer %q moved from chain %q to %q", l.name, l.chain.name, c.name)}
		c.logger.Warn(rebound.Message, "code", rebound.Code)
		l.chain.release(l)
		if w == nil {
			w = rebound
		}
	}
	if w != nil && w.Code == WarnDuplicateLayer {
		c.logger.Warn(w.Message, "code", w.Code)
	}

	l.chain = c
	c.markDirty()
	c.logger.Debug("layer added", "layer", l.name, "kind", l.kind, "nodes", l.Size())
	return w
}

// RemoveLayer deregisters l and drops every arc block it is an endpoint
// of. Removing an unregistered layer is a no-op reported as
// WarnLayerAbsent.
func (c *Chain) RemoveLayer(l *Layer) *Warning {
	i := c.layerIndex(l.name)
	if i < 0 || c.layers[i] != l {
		w := &Warning{Code: WarnLayerAbsent, Layer: l.name,
			Message: fmt.Sprintf("layer %q is not in chain %q", l.name, c.name)}
		c.logger.Warn(w.Message, "code", w.Code)
		return w
	}
	c.purgeArcs(l)
	c.layers = slices.Delete(c.layers, i, i+1)
	l.chain = nil
	c.markDirty()
	c.logger.Debug("layer removed", "layer", l.name)
	return nil
}

// ConnectOption configures ConnectLayers.
type ConnectOption func(*connectConfig)

type connectConfig struct {
	distance [][]float64
}

// WithDistance attaches a distance matrix to the destination layer, which
// must be a demand layer. The matrix must have the cost matrix's shape.
func WithDistance(d [][]float64) ConnectOption {
	return func(cfg *connectConfig) { cfg.distance = d }
}

// ConnectLayers draws arcs from every node of from to every node of to.
//
// costs must be from.Size() × to.Size(); +Inf marks a forbidden arc, NaN
// and -Inf are rejected. Both layers must be registered on the chain.
// A layer has at most one inbound and one outbound block, so a new
// connection replaces the blocks it displaces. Without WithDistance the
// destination's distance matrix is cleared.
func (c *Chain) ConnectLayers(from, to *Layer, costs [][]float64, opts ...ConnectOption) error {
	if from == nil || to == nil {
		return errors.New(errors.ErrCodeInvalidInput, "cannot connect a nil layer")
	}
	if !c.registered(from) {
		return errors.NotAttached(from.name, c.name)
	}
	if !c.registered(to) {
		return errors.NotAttached(to.name, c.name)
	}
	if from == to {
		return errors.New(errors.ErrCodeInvalidInput, "cannot connect layer %q to itself", from.name)
	}

	var cfg connectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	what := fmt.Sprintf("cost matrix %s->%s", from.name, to.name)
	if err := errors.ValidateShape(what, costs, from.Size(), to.Size()); err != nil {
		return err
	}
	if err := errors.ValidateMatrix(what, costs, true); err != nil {
		return err
	}
	if cfg.distance != nil {
		if to.kind != Demand {
			return errors.New(errors.ErrCodeUnsupported, "layer %q: distances only apply to demand layers", to.name)
		}
		dwhat := fmt.Sprintf("distance matrix %s->%s", from.name, to.name)
		if err := errors.ValidateShape(dwhat, cfg.distance, from.Size(), to.Size()); err != nil {
			return err
		}
		if err := errors.ValidateMatrix(dwhat, cfg.distance, false); err != nil {
			return err
		}
	}

	if from.out != nil {
		c.logger.Warn("replacing outbound arcs", "layer", from.name, "was", from.out.To.name)
		c.dropArcs(from.out)
	}
	if to.in != nil {
		c.logger.Warn("replacing inbound arcs", "layer", to.name, "was", to.in.From.name)
		c.dropArcs(to.in)
	}

	b := newArcBlock(from, to, costs)
	c.arcs = append(c.arcs, b)
	from.out = b
	to.in = b
	to.distance = cloneMatrix(cfg.distance)

	c.markDirty()
	c.logger.Debug("layers connected", "from", from.name, "to", to.name, "arcs", from.Size()*to.Size())
	return nil
}

// dropArcs removes b from the chain and from both endpoints.
func (c *Chain) dropArcs(b *ArcBlock) {
	c.arcs = slices.DeleteFunc(c.arcs, func(a *ArcBlock) bool { return a == b })
	if b.From.out == b {
		b.From.out = nil
	}
	if b.To.in == b {
		b.To.in = nil
		b.To.distance = nil
	}
}

// purgeArcs removes every block l is an endpoint of.
func (c *Chain) purgeArcs(l *Layer) {
	for _, b := range slices.Clone(c.arcs) {
		if b.From == l || b.To == l {
			c.dropArcs(b)
		}
	}
	l.detachArcs()
}

// release forgets l after it moved to another chain.
func (c *Chain) release(l *Layer) {
	c.purgeArcs(l)
	if i := c.layerIndex(l.name); i >= 0 && c.layers[i] == l {
		c.layers = slices.Delete(c.layers, i, i+1)
	}
	c.markDirty()
}

func (c *Chain) registered(l *Layer) bool {
	i := c.layerIndex(l.name)
	return i >= 0 && c.layers[i] == l
}

func (c *Chain) layerIndex(name string) int {
	return slices.IndexFunc(c.layers, func(l *Layer) bool { return l.name == name })
}

func (c *Chain) markDirty() {
	c.dirty = true
	c.result = nil
}
