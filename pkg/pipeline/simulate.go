package pipeline

import (
	"context"
	"strconv"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/rng"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
	"github.com/chris-a-talbot/sparg-viz/pkg/spatial"
)

// Simulator produces synthetic ARGs. Name identifies the implementation and
// its settings in cache keys, so two simulators that can produce different
// graphs from the same parameters and seed must not share a name.
type Simulator interface {
	Name() string
	Simulate(ctx context.Context, p sim.Params, src rng.Source) (*arg.Graph, error)
}

// BuiltinSimulator runs the coalescent builder and, for spatial runs,
// places every ancestor on the landscape.
type BuiltinSimulator struct {
	// NoiseFactor overrides [spatial.DefaultNoiseFactor] when positive.
	NoiseFactor float64
}

// Name reports "builtin/v1", suffixed with the noise factor when it differs
// from the default.
func (s BuiltinSimulator) Name() string {
	if s.NoiseFactor <= 0 || s.NoiseFactor == spatial.DefaultNoiseFactor {
		return "builtin/v1"
	}
	return "builtin/v1+noise=" + strconv.FormatFloat(s.NoiseFactor, 'g', -1, 64)
}

func (s BuiltinSimulator) Simulate(ctx context.Context, p sim.Params, src rng.Source) (*arg.Graph, error) {
	g, err := sim.Build(p, src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.SpatialDims == 0 {
		return g, nil
	}
	var opts []spatial.Option
	if s.NoiseFactor > 0 {
		opts = append(opts, spatial.WithNoiseFactor(s.NoiseFactor))
	}
	return spatial.Propagate(g, src, opts...)
}

var _ Simulator = BuiltinSimulator{}
