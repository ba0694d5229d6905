package arg

import (
	"fmt"
	"slices"
	"testing"
)

func TestTrees(t *testing.T) {
	g := twoTreeGraph(t)
	trees := g.Trees()
	if len(trees) != 2 {
		t.Fatalf("len(Trees) = %d, want 2", len(trees))
	}
	if trees[0].Left != 0 || trees[0].Right != 50 || trees[1].Left != 50 || trees[1].Right != 100 {
		t.Errorf("tree intervals = [%g,%g) [%g,%g)", trees[0].Left, trees[0].Right, trees[1].Left, trees[1].Right)
	}

	tests := []struct {
		tree int
		a, b int
		want int
	}{
		{0, 0, 1, 3},
		{0, 0, 2, 5},
		{0, 1, 2, 5},
		{1, 1, 2, 4},
		{1, 0, 1, 5},
		{1, 0, 0, 0},
	}
	for _, tt := range tests {
		got, ok := trees[tt.tree].MRCA(tt.a, tt.b)
		if !ok || got != tt.want {
			t.Errorf("tree %d MRCA(%d,%d) = %d,%v want %d", tt.tree, tt.a, tt.b, got, ok, tt.want)
		}
	}

	if got := trees[1].Ancestors(1); !slices.Equal(got, []int{4, 5}) {
		t.Errorf("Ancestors(1) = %v", got)
	}
	if got := trees[0].Parent(4); got != -1 {
		t.Errorf("node 4 absent from tree 0, Parent = %d", got)
	}
	if got := trees[0].Roots(); !slices.Equal(got, []int{5}) {
		t.Errorf("Roots = %v", got)
	}
	if tm, ok := trees[1].TMRCA(1, 2); !ok || tm != 2 {
		t.Errorf("TMRCA = %g, %v", tm, ok)
	}
}

func TestTreesFirstParentWins(t *testing.T) {
	g := New(10)
	c := g.AddNode(0, RoleSample)
	p1 := g.AddNode(1, RoleInternal)
	p2 := g.AddNode(2, RoleInternal)
	_ = g.AddEdge(p1, c, 0, 10)
	_ = g.AddEdge(p2, c, 0, 10)
	trees := g.Trees()
	if len(trees) != 1 || trees[0].Parent(c) != p1 {
		t.Errorf("Parent = %d, want %d", trees[0].Parent(c), p1)
	}
}

func TestTreesDisconnected(t *testing.T) {
	g := New(10)
	a := g.AddNode(0, RoleSample)
	b := g.AddNode(0, RoleSample)
	trees := g.Trees()
	if len(trees) != 1 {
		t.Fatalf("len(Trees) = %d", len(trees))
	}
	if _, ok := trees[0].MRCA(a, b); ok {
		t.Error("MRCA of disconnected samples should not exist")
	}
	if got := trees[0].Roots(); !slices.Equal(got, []int{a, b}) {
		t.Errorf("Roots = %v", got)
	}
}

func TestTreeBoundariesIncludeDeclared(t *testing.T) {
	g := twoTreeGraph(t)
	g.SetBreakpoints([]float64{25})
	if got := g.TreeBoundaries(); !slices.Equal(got, []float64{0, 25, 50, 100}) {
		t.Errorf("TreeBoundaries = %v", got)
	}
	if got := g.TreesIn(30, 60); got != 2 {
		t.Errorf("TreesIn(30, 60) = %d, want 2", got)
	}
	if got := g.TreesIn(0, 100); got != 3 {
		t.Errorf("TreesIn(0, 100) = %d, want 3", got)
	}
}

func ExampleGraph_Trees() {
	g := New(100)
	a := g.AddNode(0, RoleSample)
	b := g.AddNode(0, RoleSample)
	p := g.AddNode(1, RoleInternal)
	q := g.AddNode(2, RoleInternal)
	_ = g.AddEdge(p, a, 0, 100)
	_ = g.AddEdge(p, b, 0, 40)
	_ = g.AddEdge(q, b, 40, 100)
	_ = g.AddEdge(q, p, 40, 100)

	for _, tr := range g.Trees() {
		m, _ := tr.MRCA(a, b)
		fmt.Printf("[%g, %g) mrca=%d\n", tr.Left, tr.Right, m)
	}
	// Output:
	// [0, 40) mrca=2
	// [40, 100) mrca=3
}
