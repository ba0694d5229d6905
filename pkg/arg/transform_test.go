package arg

import (
	"slices"
	"testing"

	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

func TestSimplify(t *testing.T) {
	g := twoTreeGraph(t)
	s, err := g.Simplify([]int{0, 1})
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("simplified graph invalid: %v", err)
	}
	if len(s.Nodes) != 5 {
		t.Fatalf("len(Nodes) = %d, want 5", len(s.Nodes))
	}
	if got := s.Samples(); !slices.Equal(got, []int{0, 1}) {
		t.Errorf("Samples = %v", got)
	}
	if len(s.Edges) != 5 {
		t.Errorf("len(Edges) = %d, want 5: %v", len(s.Edges), s.Edges)
	}
	for i := 3; i < len(s.Nodes); i++ {
		if s.Nodes[i].Time < s.Nodes[i-1].Time {
			t.Errorf("non-sample nodes not in time order: %v", s.Nodes)
		}
	}
	if s.Nodes[3].Role != RoleRecombination {
		t.Errorf("recombination role lost: %v", s.Nodes[3])
	}
	trees := s.Trees()
	if m, _ := trees[0].MRCA(0, 1); s.Nodes[m].Time != 1 {
		t.Errorf("tree 0 TMRCA = %g, want 1", s.Nodes[m].Time)
	}
	if m, _ := trees[len(trees)-1].MRCA(0, 1); s.Nodes[m].Time != 3 {
		t.Errorf("last tree TMRCA = %g, want 3", s.Nodes[m].Time)
	}
}

func TestSimplifyReordersSamples(t *testing.T) {
	g := twoTreeGraph(t)
	s, err := g.Simplify([]int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Nodes[0].IsSample() || !s.Nodes[1].IsSample() || s.NumSamples() != 2 {
		t.Errorf("samples not first: %v", s.Nodes)
	}
}

func TestSimplifyErrors(t *testing.T) {
	g := twoTreeGraph(t)
	tests := []struct {
		name    string
		samples []int
		code    errs.Code
	}{
		{"unknown", []int{0, 9}, errs.ErrCodeNotFound},
		{"not a sample", []int{0, 3}, errs.ErrCodeInvalidParameter},
		{"duplicate", []int{1, 1}, errs.ErrCodeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.Simplify(tt.samples); !errs.Is(err, tt.code) {
				t.Errorf("Simplify(%v) = %v, want %v", tt.samples, err, tt.code)
			}
		})
	}
}

func TestEvenlySpacedSamples(t *testing.T) {
	g := New(10)
	times := []float64{5, 0, 3, 1, 4, 2}
	for _, tm := range times {
		g.AddNode(tm, RoleSample)
	}
	// Time-sorted order: 1(0) 3(1) 5(2) 2(3) 4(4) 0(5).
	if got := g.EvenlySpacedSamples(3); !slices.Equal(got, []int{1, 5, 0}) {
		t.Errorf("EvenlySpacedSamples(3) = %v", got)
	}
	if got := g.EvenlySpacedSamples(10); len(got) != 6 {
		t.Errorf("EvenlySpacedSamples(10) = %v", got)
	}
}

func TestDownsample(t *testing.T) {
	g := twoTreeGraph(t)
	if _, err := g.Downsample(1); !errs.Is(err, errs.ErrCodeTooFewSamples) {
		t.Errorf("Downsample(1) = %v", err)
	}
	same, err := g.Downsample(3)
	if err != nil || same != g {
		t.Errorf("Downsample(3) should return the graph unchanged")
	}
	d, err := g.Downsample(2)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumSamples() != 2 {
		t.Errorf("NumSamples = %d", d.NumSamples())
	}
}

func TestFocus(t *testing.T) {
	g := twoTreeGraph(t)

	sub, err := g.Focus(3, FocusSubgraph)
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Nodes) != 3 || len(sub.Edges) != 2 {
		t.Errorf("subgraph = %d nodes, %d edges", len(sub.Nodes), len(sub.Edges))
	}

	up, err := g.Focus(1, FocusAncestors)
	if err != nil {
		t.Fatal(err)
	}
	if len(up.Nodes) != 4 || len(up.Edges) != 4 {
		t.Errorf("ancestors = %d nodes, %d edges", len(up.Nodes), len(up.Edges))
	}
	if err := up.Validate(); err != nil {
		t.Errorf("focused graph invalid: %v", err)
	}

	if _, err := g.Focus(42, FocusSubgraph); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("unknown node: %v", err)
	}
	if _, err := g.Focus(1, FocusMode("sideways")); !errs.Is(err, errs.ErrCodeInvalidParameter) {
		t.Errorf("unknown mode: %v", err)
	}
}

func TestWindow(t *testing.T) {
	g := twoTreeGraph(t)
	w, err := g.Window(60, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Nodes) != 6 || len(w.Edges) != 5 {
		t.Errorf("window = %d nodes, %d edges", len(w.Nodes), len(w.Edges))
	}
	for _, e := range w.Edges {
		if !(e.Left < 100 && e.Right > 60) {
			t.Errorf("edge %v outside window", e)
		}
	}

	if _, err := g.Window(50, 50); !errs.Is(err, errs.ErrCodeInvalidParameter) {
		t.Errorf("empty window: %v", err)
	}
	if _, err := g.Window(0, 200); !errs.Is(err, errs.ErrCodeInvalidParameter) {
		t.Errorf("window past end: %v", err)
	}
}

func TestWithLocations(t *testing.T) {
	g := twoTreeGraph(t)
	out, err := g.WithLocations(map[int][]float64{0: {1, 2}, 5: {3, 4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Individuals) != 2 {
		t.Fatalf("len(Individuals) = %d", len(out.Individuals))
	}
	if got := out.Location(0); !slices.Equal(got, []float64{1, 2, 0}) {
		t.Errorf("Location(0) = %v", got)
	}
	if got := out.Location(5); !slices.Equal(got, []float64{3, 4, 5}) {
		t.Errorf("Location(5) = %v", got)
	}
	if out.Location(1) != nil {
		t.Errorf("node 1 should be unlocated")
	}
	if len(g.Individuals) != 0 {
		t.Error("WithLocations modified the receiver")
	}

	if _, err := g.WithLocations(map[int][]float64{99: {0, 0}}); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("unknown node: %v", err)
	}
}
