// Package spatial places ancestral nodes of an ARG on the landscape its
// samples were drawn from.
//
// [Propagate] walks nodes from the oldest to the youngest. An unlocated
// node takes the mean location of its already placed parents (over every
// local tree it belongs to), perturbed by Gaussian noise that grows with
// the time gap to its oldest parent and clipped to the landscape bounds.
// Nodes without placed parents get a uniform location.
package spatial

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/rng"
)

// DefaultNoiseFactor scales the variance of the per-node displacement.
const DefaultNoiseFactor = 0.1

type options struct {
	noise  float64
	bounds *arg.Spatial
}

// Option configures [Propagate].
type Option func(*options)

// WithNoiseFactor overrides [DefaultNoiseFactor].
func WithNoiseFactor(f float64) Option {
	return func(o *options) { o.noise = f }
}

// WithBounds overrides the landscape recorded on the graph, for graphs
// ingested without spatial metadata.
func WithBounds(s arg.Spatial) Option {
	return func(o *options) { o.bounds = &s }
}

// Propagate returns a copy of g in which every node with an unlocated
// individual has been placed. Graphs without spatial dimensions are
// returned unchanged. The result is deterministic for a given source.
func Propagate(g *arg.Graph, src rng.Source, opts ...Option) (*arg.Graph, error) {
	o := options{noise: DefaultNoiseFactor}
	for _, opt := range opts {
		opt(&o)
	}
	bounds := g.Spatial
	if o.bounds != nil {
		bounds = *o.bounds
	}
	if bounds.Dims == 0 {
		return g, nil
	}
	if bounds.Dims < 0 || bounds.Dims > 2 {
		return nil, errs.New(errs.ErrCodeInvalidParameter, "spatial dims must be 0, 1 or 2, got %d", bounds.Dims)
	}
	for axis := 0; axis < bounds.Dims; axis++ {
		if !(bounds.Range(axis) > 0) {
			return nil, errs.New(errs.ErrCodeInvalidParameter, "spatial range for axis %d must be positive", axis)
		}
	}
	if !(o.noise >= 0) {
		return nil, errs.New(errs.ErrCodeInvalidParameter, "noise factor must be non-negative, got %g", o.noise)
	}

	out := g.Clone()
	out.Spatial = bounds
	parents := treeParents(out)

	order := make([]int, len(out.Nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(out.Nodes[b].Time, out.Nodes[a].Time),
			cmp.Compare(a, b),
		)
	})

	for _, u := range order {
		ind := out.Nodes[u].Individual
		if ind == arg.NoIndividual || out.Individuals[ind].Located() {
			continue
		}
		out.Individuals[ind].Location = place(out, u, parents[u], bounds, o.noise, src)
	}
	return out, nil
}

// treeParents lists, per node, its parent in every local tree where it has
// one, in tree order. A parent shared by several trees appears once per
// tree, so the mean in place weights parents by the trees they cover.
func treeParents(g *arg.Graph) [][]int {
	out := make([][]int, len(g.Nodes))
	for _, t := range g.Trees() {
		for u := range g.Nodes {
			if p := t.Parent(u); p >= 0 {
				out[u] = append(out[u], p)
			}
		}
	}
	return out
}

func place(g *arg.Graph, u int, parents []int, bounds arg.Spatial, noise float64, src rng.Source) []float64 {
	var located [][]float64
	oldest := math.Inf(-1)
	for _, p := range parents {
		loc := g.Location(p)
		if len(loc) < bounds.Dims {
			continue
		}
		located = append(located, loc)
		oldest = math.Max(oldest, g.Nodes[p].Time)
	}

	loc := make([]float64, bounds.Dims)
	if len(located) == 0 {
		for axis := range loc {
			half := bounds.Range(axis) / 2
			loc[axis] = rng.Uniform(src, -half, half)
		}
		return loc
	}

	sd := math.Sqrt(math.Abs(g.Nodes[u].Time-oldest) * noise)
	coords := make([]float64, len(located))
	for axis := range loc {
		for i, l := range located {
			coords[i] = l[axis]
		}
		half := bounds.Range(axis) / 2
		v := floats.Sum(coords)/float64(len(coords)) + src.NormFloat64()*sd
		loc[axis] = math.Max(-half, math.Min(half, v))
	}
	return loc
}
