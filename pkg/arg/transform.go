package arg

import (
	"cmp"
	"slices"

	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/interval"
)

// Simplify restricts the graph to the genealogy of the given samples.
//
// Ancestral material is pushed from the kept samples towards the roots in
// time order; edges are clipped to the material they actually carry and
// nodes that carry none are dropped. Unary nodes (such as recombination
// nodes) are kept. In the result the kept samples come first, in the order
// given, followed by the remaining nodes in ascending time. Samples that
// were not requested lose their sample role.
func (g *Graph) Simplify(samples []int) (*Graph, error) {
	keepSample := make(map[int]bool, len(samples))
	for _, s := range samples {
		if s < 0 || s >= len(g.Nodes) {
			return nil, errs.Wrap(errs.ErrCodeNotFound, ErrUnknownNode, "sample %d", s)
		}
		if !g.Nodes[s].IsSample() {
			return nil, errs.New(errs.ErrCodeInvalidParameter, "node %d is not a sample", s)
		}
		if keepSample[s] {
			return nil, errs.New(errs.ErrCodeInvalidParameter, "duplicate sample %d", s)
		}
		keepSample[s] = true
	}

	upEdges := make([][]int, len(g.Nodes))
	for i, e := range g.Edges {
		upEdges[e.Child] = append(upEdges[e.Child], i)
	}

	order := make([]int, len(g.Nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(g.Nodes[a].Time, g.Nodes[b].Time)
	})

	full := interval.Full(g.SequenceLength)
	incoming := make([][]interval.Set, len(g.Nodes))
	type piece struct {
		parent, child int
		span          interval.Interval
	}
	var kept []piece
	carries := make([]bool, len(g.Nodes))
	for _, u := range order {
		var material interval.Set
		if keepSample[u] {
			material = full
		} else {
			material = interval.Merge(incoming[u]...)
		}
		if material.IsEmpty() {
			continue
		}
		carries[u] = true
		for _, ei := range upEdges[u] {
			e := g.Edges[ei]
			passed := interval.Intersect(material, interval.New(e.Span()))
			if passed.IsEmpty() {
				continue
			}
			incoming[e.Parent] = append(incoming[e.Parent], passed)
			for _, iv := range passed.Intervals() {
				kept = append(kept, piece{e.Parent, u, iv})
			}
		}
	}

	remap := make([]int, len(g.Nodes))
	for i := range remap {
		remap[i] = -1
	}
	out := &Graph{
		SequenceLength: g.SequenceLength,
		Breakpoints:    slices.Clone(g.Breakpoints),
		Spatial:        g.Spatial,
	}
	indMap := map[int]int{}
	addNode := func(u int, role Role) {
		id := out.AddNode(g.Nodes[u].Time, role)
		remap[u] = id
		if ind := g.Nodes[u].Individual; ind != NoIndividual {
			ni, ok := indMap[ind]
			if !ok {
				ni = out.AddIndividual(g.Individuals[ind].Location)
				indMap[ind] = ni
			}
			out.Nodes[id].Individual = ni
		}
	}
	for _, s := range samples {
		addNode(s, RoleSample)
	}
	for _, u := range order {
		if !carries[u] || keepSample[u] {
			continue
		}
		role := g.Nodes[u].Role
		if role == RoleSample {
			role = RoleInternal
		}
		addNode(u, role)
	}

	slices.SortStableFunc(kept, func(a, b piece) int {
		return cmp.Or(
			cmp.Compare(remap[a.parent], remap[b.parent]),
			cmp.Compare(remap[a.child], remap[b.child]),
			cmp.Compare(a.span.Left, b.span.Left),
		)
	})
	for _, p := range kept {
		if err := out.AddEdge(remap[p.parent], remap[p.child], p.span.Left, p.span.Right); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EvenlySpacedSamples picks k samples spread evenly over the samples sorted
// by time (ties by id). All samples are returned when there are at most k.
func (g *Graph) EvenlySpacedSamples(k int) []int {
	samples := g.Samples()
	slices.SortStableFunc(samples, func(a, b int) int {
		return cmp.Compare(g.Nodes[a].Time, g.Nodes[b].Time)
	})
	if len(samples) <= k {
		return samples
	}
	if k <= 1 {
		return samples[:max(k, 0)]
	}
	out := make([]int, k)
	for i := range out {
		out[i] = samples[i*(len(samples)-1)/(k-1)]
	}
	return out
}

// Downsample simplifies the graph onto at most k evenly spaced samples.
// The graph is returned unchanged when it has k samples or fewer.
func (g *Graph) Downsample(k int) (*Graph, error) {
	if k < 2 {
		return nil, errs.New(errs.ErrCodeTooFewSamples, "at least 2 samples are required, got %d", k)
	}
	if g.NumSamples() <= k {
		return g, nil
	}
	return g.Simplify(g.EvenlySpacedSamples(k))
}

// FocusMode selects which relatives [Graph.Focus] keeps.
type FocusMode string

const (
	// FocusSubgraph keeps the focus node and all of its descendants.
	FocusSubgraph FocusMode = "subgraph"
	// FocusAncestors keeps the focus node and all of its ancestors.
	FocusAncestors FocusMode = "parent"
)

// ParseFocusMode validates a focus mode name.
func ParseFocusMode(s string) (FocusMode, error) {
	switch m := FocusMode(s); m {
	case FocusSubgraph, FocusAncestors:
		return m, nil
	}
	return "", errs.New(errs.ErrCodeInvalidParameter, "unknown focus mode %q (use %q or %q)", s, FocusSubgraph, FocusAncestors)
}

// Focus returns the subgraph induced by node and its descendants
// (FocusSubgraph) or ancestors (FocusAncestors). Node ids are renumbered
// densely, preserving their relative order.
func (g *Graph) Focus(node int, mode FocusMode) (*Graph, error) {
	if node < 0 || node >= len(g.Nodes) {
		return nil, errs.Wrap(errs.ErrCodeNotFound, ErrUnknownNode, "focus node %d (max %d)", node, len(g.Nodes)-1)
	}
	if _, err := ParseFocusMode(string(mode)); err != nil {
		return nil, err
	}
	next := make([][]int, len(g.Nodes))
	for _, e := range g.Edges {
		if mode == FocusSubgraph {
			next[e.Parent] = append(next[e.Parent], e.Child)
		} else {
			next[e.Child] = append(next[e.Child], e.Parent)
		}
	}

	keep := make([]bool, len(g.Nodes))
	keep[node] = true
	queue := []int{node}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range next[u] {
			if !keep[v] {
				keep[v] = true
				queue = append(queue, v)
			}
		}
	}
	return g.induced(keep, func(Edge) bool { return true }), nil
}

// Window keeps the edges overlapping [start, end) together with the samples
// and every node they touch. Edges are not clipped.
func (g *Graph) Window(start, end float64) (*Graph, error) {
	if !(start < end) {
		return nil, errs.New(errs.ErrCodeInvalidParameter, "genomic window start %g must be below end %g", start, end)
	}
	if start < 0 || end > g.SequenceLength {
		return nil, errs.New(errs.ErrCodeInvalidParameter, "genomic window [%g, %g) outside [0, %g)", start, end, g.SequenceLength)
	}
	overlaps := func(e Edge) bool { return e.Left < end && e.Right > start }
	keep := make([]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		keep[n.ID] = n.IsSample()
	}
	for _, e := range g.Edges {
		if overlaps(e) {
			keep[e.Parent] = true
			keep[e.Child] = true
		}
	}
	return g.induced(keep, overlaps), nil
}

// induced builds the subgraph of kept nodes and the accepted edges between
// them, renumbering nodes and individuals densely.
func (g *Graph) induced(keep []bool, accept func(Edge) bool) *Graph {
	out := &Graph{
		SequenceLength: g.SequenceLength,
		Breakpoints:    slices.Clone(g.Breakpoints),
		Spatial:        g.Spatial,
	}
	remap := make([]int, len(g.Nodes))
	indMap := map[int]int{}
	for _, n := range g.Nodes {
		remap[n.ID] = -1
		if !keep[n.ID] {
			continue
		}
		id := out.AddNode(n.Time, n.Role)
		remap[n.ID] = id
		if n.Individual != NoIndividual {
			ni, ok := indMap[n.Individual]
			if !ok {
				ni = out.AddIndividual(g.Individuals[n.Individual].Location)
				indMap[n.Individual] = ni
			}
			out.Nodes[id].Individual = ni
		}
	}
	for _, e := range g.Edges {
		p, c := remap[e.Parent], remap[e.Child]
		if p < 0 || c < 0 || !accept(e) {
			continue
		}
		out.Edges = append(out.Edges, Edge{Parent: p, Child: c, Left: e.Left, Right: e.Right})
	}
	return out
}

// WithLocations returns a copy whose individual table is replaced by one
// individual per located node. Locations are padded to three coordinates;
// coordinates past the third are ignored. Nodes absent from locs end up
// without an individual.
func (g *Graph) WithLocations(locs map[int][]float64) (*Graph, error) {
	for id := range locs {
		if id < 0 || id >= len(g.Nodes) {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, ErrUnknownNode, "location for node %d", id)
		}
	}
	out := g.Clone()
	out.Individuals = nil
	for i := range out.Nodes {
		loc, ok := locs[i]
		if !ok {
			out.Nodes[i].Individual = NoIndividual
			continue
		}
		padded := make([]float64, 3)
		copy(padded, loc)
		out.Attach(i, padded)
	}
	return out, nil
}
