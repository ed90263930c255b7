package cache

// Keyer derives cache keys for solver results.
type Keyer interface {
	// SolutionKey returns the key for the solution of the model with the
	// given hash, as produced by the named solver.
	SolutionKey(modelHash, solver string) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SolutionKey implements Keyer.
func (DefaultKeyer) SolutionKey(modelHash, solver string) string {
	return hashKey("solution", solver, modelHash)
}

// ScopedKeyer wraps a Keyer with a prefix, so that several teams can share
// one Redis instance without seeing each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "planning:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SolutionKey implements Keyer.
func (k *ScopedKeyer) SolutionKey(modelHash, solver string) string {
	return k.prefix + k.inner.SolutionKey(modelHash, solver)
}
