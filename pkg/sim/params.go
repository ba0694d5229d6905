package sim

import (
	"math"

	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

// Defaults applied by [DefaultParams].
const (
	DefaultRecombinationProb = 0.15
	DefaultCoalescenceRate   = 1.0
	DefaultEdgeDensity       = 0.8
	DefaultGenerations       = 6
	DefaultXRange            = 10.0
)

// Params configures a simulation.
type Params struct {
	Samples     int `json:"num_samples" toml:"samples" yaml:"samples"`
	Trees       int `json:"num_trees" toml:"trees" yaml:"trees"`
	SpatialDims int `json:"spatial_dims" toml:"spatial_dims" yaml:"spatial_dims"`
	Generations int `json:"num_generations" toml:"generations" yaml:"generations"`

	// XRange and YRange bound sample locations to [-range/2, range/2].
	// YRange is only used (and required) in 2D mode.
	XRange float64 `json:"x_range" toml:"x_range" yaml:"x_range"`
	YRange float64 `json:"y_range,omitempty" toml:"y_range" yaml:"y_range"`

	RecombinationProb float64 `json:"recombination_probability" toml:"recombination_probability" yaml:"recombination_probability"`
	CoalescenceRate   float64 `json:"coalescence_rate" toml:"coalescence_rate" yaml:"coalescence_rate"`
	EdgeDensity       float64 `json:"edge_density" toml:"edge_density" yaml:"edge_density"`
}

// DefaultParams returns a small non-spatial configuration with the default
// event rates.
func DefaultParams() Params {
	return Params{
		Samples:           10,
		Trees:             3,
		Generations:       DefaultGenerations,
		XRange:            DefaultXRange,
		RecombinationProb: DefaultRecombinationProb,
		CoalescenceRate:   DefaultCoalescenceRate,
		EdgeDensity:       DefaultEdgeDensity,
	}
}

// SetDefaults fills zero-valued rate fields with their defaults.
// Counts are left alone so that Validate reports them.
func (p *Params) SetDefaults() {
	if p.Generations == 0 {
		p.Generations = DefaultGenerations
	}
	if p.CoalescenceRate == 0 {
		p.CoalescenceRate = DefaultCoalescenceRate
	}
	if p.EdgeDensity == 0 {
		p.EdgeDensity = DefaultEdgeDensity
	}
	if p.SpatialDims > 0 && p.XRange == 0 {
		p.XRange = DefaultXRange
	}
}

// Validate checks every precondition of the builder. The returned error has
// code INVALID_PARAMETER and names the offending field.
func (p Params) Validate() error {
	switch {
	case p.Samples < 2:
		return invalid("num_samples must be at least 2, got %d", p.Samples)
	case p.Trees < 1:
		return invalid("num_trees must be at least 1, got %d", p.Trees)
	case p.SpatialDims < 0 || p.SpatialDims > 2:
		return invalid("spatial_dims must be 0, 1 or 2, got %d", p.SpatialDims)
	case p.Generations < 1:
		return invalid("num_generations must be at least 1, got %d", p.Generations)
	case !finite(p.RecombinationProb) || p.RecombinationProb < 0 || p.RecombinationProb > 1:
		return invalid("recombination_probability must be in [0, 1], got %g", p.RecombinationProb)
	case !finite(p.CoalescenceRate) || p.CoalescenceRate <= 0:
		return invalid("coalescence_rate must be positive, got %g", p.CoalescenceRate)
	case !finite(p.EdgeDensity) || p.EdgeDensity <= 0:
		return invalid("edge_density must be positive, got %g", p.EdgeDensity)
	case p.SpatialDims >= 1 && (!finite(p.XRange) || p.XRange <= 0):
		return invalid("x_range must be positive for spatial simulations, got %g", p.XRange)
	case p.SpatialDims == 2 && p.YRange == 0:
		return invalid("y_range is required when spatial_dims is 2")
	case p.SpatialDims == 2 && (!finite(p.YRange) || p.YRange < 0):
		return invalid("y_range must be positive, got %g", p.YRange)
	}
	return nil
}

// SequenceLength returns the simulated sequence length (1000 per tree).
func (p Params) SequenceLength() float64 {
	return float64(p.Trees) * unitsPerTree
}

func invalid(format string, args ...any) error {
	return errs.New(errs.ErrCodeInvalidParameter, format, args...)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
