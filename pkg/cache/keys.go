package cache

import "fmt"

// LayoutKeyOpts are the layout options that change a layout result.
type LayoutKeyOpts struct {
	MaxSamples int     `json:"max_samples"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Margin     float64 `json:"margin"`
	MinSpacing float64 `json:"min_spacing"`
	Nudge      float64 `json:"nudge"`
	Title      string  `json:"title,omitempty"`
	Focus      int     `json:"focus"`
	FocusMode  string  `json:"focus_mode,omitempty"`
}

// RenderKeyOpts are the render options that change an artifact.
type RenderKeyOpts struct {
	Format string `json:"format"`
	Labels bool   `json:"labels"`
	Title  string `json:"title,omitempty"`
}

// Keyer builds cache keys. Implementations must return equal keys exactly
// when the inputs would produce equal cached values.
type Keyer interface {
	// LayoutKey keys a layout of the graph with the given content hash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// RenderKey keys an artifact rendered from the layout with the given
	// content hash.
	RenderKey(layoutHash string, opts RenderKeyOpts) string

	// SimulationKey keys a seeded simulation, identified by the hash of its
	// parameters.
	SimulationKey(paramsHash string, seed uint64) string
}

// DefaultKeyer hashes every input into a prefixed SHA-256 key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(layoutHash string, opts RenderKeyOpts) string {
	return hashKey("render", layoutHash, opts)
}

// SimulationKey implements [Keyer].
func (DefaultKeyer) SimulationKey(paramsHash string, seed uint64) string {
	return hashKey("sim", paramsHash, fmt.Sprint(seed))
}
