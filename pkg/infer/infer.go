// Package infer estimates locations for ancestral nodes from located
// samples.
//
// [Command] delegates to an external program; [Midpoint] is a built-in
// estimator that needs no tooling. Both return a node id to coordinates
// map that [arg.Graph.WithLocations] splices into a graph.
package infer

import (
	"cmp"
	"context"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

// Inferrer estimates node locations.
type Inferrer interface {
	Infer(ctx context.Context, g *arg.Graph) (map[int][]float64, error)
}

// Midpoint places every unlocated node at the mean of its children's
// locations, each weighted by the genome length it passes to that child.
// Nodes are visited youngest first so that children are placed before
// their parents. Only located samples seed the estimate.
type Midpoint struct{}

func (Midpoint) Infer(ctx context.Context, g *arg.Graph) (map[int][]float64, error) {
	dims := 0
	for _, s := range g.Samples() {
		dims = max(dims, len(g.Location(s)))
	}
	if dims == 0 {
		return nil, errs.New(errs.ErrCodeInferenceFailed, "no sample has a location")
	}

	kids := make([][]arg.Edge, len(g.Nodes))
	for _, e := range g.Edges {
		kids[e.Parent] = append(kids[e.Parent], e)
	}
	order := make([]int, len(g.Nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return cmp.Or(cmp.Compare(g.Nodes[a].Time, g.Nodes[b].Time), cmp.Compare(a, b))
	})

	locs := make(map[int][]float64, len(g.Nodes))
	for _, s := range g.Samples() {
		if loc := g.Location(s); len(loc) == dims {
			locs[s] = slices.Clone(loc)
		}
	}

	weights := make([]float64, 0, 8)
	coords := make([]float64, 0, 8)
	for _, u := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := locs[u]; ok || g.Nodes[u].IsSample() {
			continue
		}
		weights = weights[:0]
		var placed []int
		for _, e := range kids[u] {
			if _, ok := locs[e.Child]; ok {
				placed = append(placed, e.Child)
				weights = append(weights, e.Right-e.Left)
			}
		}
		if len(placed) == 0 {
			continue
		}
		total := floats.Sum(weights)
		loc := make([]float64, dims)
		for axis := range loc {
			coords = coords[:0]
			for _, c := range placed {
				coords = append(coords, locs[c][axis])
			}
			loc[axis] = floats.Dot(coords, weights) / total
		}
		locs[u] = loc
	}

	// Samples keep their own locations; only report inferred nodes.
	for _, s := range g.Samples() {
		delete(locs, s)
	}
	return locs, nil
}

var _ Inferrer = Midpoint{}
