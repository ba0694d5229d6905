package arg

import (
	"slices"
	"sort"
)

// Tree is one local tree of the ARG: the genealogy shared by every position
// in [Left, Right).
//
// The parent array is computed once when the tree is built; lookups are
// O(1) and MRCA queries walk at most the tree depth.
type Tree struct {
	Index int
	Left  float64
	Right float64

	parent []int
	graph  *Graph
}

// Span returns the genomic length of the tree.
func (t *Tree) Span() float64 { return t.Right - t.Left }

// Parent returns u's parent in this tree, or -1.
func (t *Tree) Parent(u int) int {
	if u < 0 || u >= len(t.parent) {
		return -1
	}
	return t.parent[u]
}

// Ancestors returns the path from u's parent up to the root.
func (t *Tree) Ancestors(u int) []int {
	var out []int
	for p := t.Parent(u); p >= 0; p = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Root returns the topmost ancestor of u (u itself when it has no parent).
func (t *Tree) Root(u int) int {
	for p := t.Parent(u); p >= 0; p = t.Parent(p) {
		u = p
	}
	return u
}

// Roots returns the distinct roots reached from the graph's samples, in
// ascending order.
func (t *Tree) Roots() []int {
	seen := map[int]bool{}
	var out []int
	for _, s := range t.graph.Samples() {
		r := t.Root(s)
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}

// MRCA returns the most recent common ancestor of a and b in this tree.
// The second result is false when a and b are in different subtrees.
func (t *Tree) MRCA(a, b int) (int, bool) {
	if a == b {
		return a, true
	}
	onPath := map[int]bool{a: true}
	for p := t.Parent(a); p >= 0; p = t.Parent(p) {
		onPath[p] = true
	}
	for u := b; u >= 0; u = t.Parent(u) {
		if onPath[u] {
			return u, true
		}
	}
	return -1, false
}

// TMRCA returns the time of the MRCA of a and b.
func (t *Tree) TMRCA(a, b int) (float64, bool) {
	m, ok := t.MRCA(a, b)
	if !ok {
		return 0, false
	}
	return t.graph.Nodes[m].Time, true
}

// Edges returns the parent-child pairs present in this tree, ordered by child.
func (t *Tree) Edges() [][2]int {
	var out [][2]int
	for c, p := range t.parent {
		if p >= 0 {
			out = append(out, [2]int{p, c})
		}
	}
	return out
}

// TreeBoundaries returns the ordered positions that delimit local trees:
// the union of the declared breakpoints, 0, L and every edge endpoint.
func (g *Graph) TreeBoundaries() []float64 {
	out := make([]float64, 0, len(g.Breakpoints)+2*len(g.Edges)+2)
	out = append(out, 0, g.SequenceLength)
	for _, b := range g.Breakpoints {
		if b >= 0 && b <= g.SequenceLength {
			out = append(out, b)
		}
	}
	for _, e := range g.Edges {
		out = append(out, e.Left, e.Right)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Trees returns the ordered local trees.
//
// For each tree, an edge covering the tree interval sets the child's
// parent; when several edges cover the same child the first one wins.
func (g *Graph) Trees() []*Tree {
	bounds := g.TreeBoundaries()
	if len(bounds) < 2 {
		return nil
	}
	trees := make([]*Tree, len(bounds)-1)
	for i := range trees {
		parent := make([]int, len(g.Nodes))
		for j := range parent {
			parent[j] = -1
		}
		trees[i] = &Tree{Index: i, Left: bounds[i], Right: bounds[i+1], parent: parent, graph: g}
	}
	for _, e := range g.Edges {
		// Edge endpoints are boundaries, so the edge covers a contiguous run
		// of whole trees starting at its Left.
		first := sort.SearchFloat64s(bounds, e.Left)
		for i := first; i < len(trees) && trees[i].Right <= e.Right; i++ {
			if trees[i].parent[e.Child] < 0 {
				trees[i].parent[e.Child] = e.Parent
			}
		}
	}
	return trees
}

// TreesIn counts the local trees overlapping [start, end).
func (g *Graph) TreesIn(start, end float64) int {
	bounds := g.TreeBoundaries()
	n := 0
	for i := 0; i+1 < len(bounds); i++ {
		if bounds[i] < end && bounds[i+1] > start {
			n++
		}
	}
	return n
}
