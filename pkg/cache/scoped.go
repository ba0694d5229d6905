package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis without reading each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "spargviz:v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}

// RenderKey generates a prefixed artifact key.
func (k *ScopedKeyer) RenderKey(layoutHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(layoutHash, opts)
}

// SimulationKey generates a prefixed simulation key.
func (k *ScopedKeyer) SimulationKey(paramsHash string, seed uint64) string {
	return k.prefix + k.inner.SimulationKey(paramsHash, seed)
}
