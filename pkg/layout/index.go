package layout

import (
	"slices"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/interval"
)

// Pair identifies a logical link: every edge between one parent and one
// child, whatever its interval.
type Pair struct {
	Parent int
	Child  int
}

// Index is an adjacency view over a graph, built in one pass over the edge
// table. It is read-only after construction.
type Index struct {
	parents  [][]int
	children [][]int
	edges    map[Pair][]arg.Edge
	pairs    []Pair
	touching [][]int // node -> indices into pairs
}

// NewIndex indexes g's edges. Parent and child lists hold distinct ids in
// first-seen order, and pairs are recorded in first-seen order so that
// iteration is deterministic.
func NewIndex(g *arg.Graph) *Index {
	n := len(g.Nodes)
	ix := &Index{
		parents:  make([][]int, n),
		children: make([][]int, n),
		edges:    make(map[Pair][]arg.Edge),
		touching: make([][]int, n),
	}
	for _, e := range g.Edges {
		k := Pair{Parent: e.Parent, Child: e.Child}
		if _, seen := ix.edges[k]; !seen {
			ix.parents[e.Child] = append(ix.parents[e.Child], e.Parent)
			ix.children[e.Parent] = append(ix.children[e.Parent], e.Child)
			ix.touching[e.Parent] = append(ix.touching[e.Parent], len(ix.pairs))
			ix.touching[e.Child] = append(ix.touching[e.Child], len(ix.pairs))
			ix.pairs = append(ix.pairs, k)
		}
		ix.edges[k] = append(ix.edges[k], e)
	}
	return ix
}

// Parents returns the distinct parents of u.
func (ix *Index) Parents(u int) []int { return slices.Clone(ix.parents[u]) }

// Children returns the distinct children of u.
func (ix *Index) Children(u int) []int { return slices.Clone(ix.children[u]) }

// Pairs returns every parent-child pair in first-seen order.
func (ix *Index) Pairs() []Pair { return slices.Clone(ix.pairs) }

// Edges returns the edges between parent and child, in table order.
func (ix *Index) Edges(parent, child int) []arg.Edge {
	return slices.Clone(ix.edges[Pair{parent, child}])
}

// Span returns the merged material passed from parent to child.
func (ix *Index) Span(parent, child int) interval.Set {
	es := ix.edges[Pair{parent, child}]
	ivs := make([]interval.Interval, len(es))
	for i, e := range es {
		ivs[i] = e.Span()
	}
	return interval.New(ivs...)
}

// Weight returns the total interval length of the edges between parent and
// child, counting overlaps once per edge.
func (ix *Index) Weight(parent, child int) float64 {
	var w float64
	for _, e := range ix.edges[Pair{parent, child}] {
		w += e.Right - e.Left
	}
	return w
}
