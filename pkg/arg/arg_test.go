package arg

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

// twoTreeGraph builds a three-sample ARG with trees [0, 50) and [50, 100):
//
//	tree 1: ((0,1)3, 2)5
//	tree 2: (0 3, (1,2)4)5
func twoTreeGraph(t *testing.T) *Graph {
	t.Helper()
	g := New(100)
	for i := 0; i < 3; i++ {
		g.AddNode(0, RoleSample)
	}
	g.AddNode(1, RoleInternal)      // 3
	g.AddNode(2, RoleRecombination) // 4
	g.AddNode(3, RoleInternal)      // 5
	edges := []Edge{
		{3, 0, 0, 100},
		{3, 1, 0, 50},
		{4, 1, 50, 100},
		{4, 2, 50, 100},
		{5, 3, 0, 100},
		{5, 4, 50, 100},
		{5, 2, 0, 50},
	}
	for _, e := range edges {
		if err := g.AddEdge(e.Parent, e.Child, e.Left, e.Right); err != nil {
			t.Fatalf("AddEdge(%v): %v", e, err)
		}
	}
	return g
}

func TestAddEdgeRejects(t *testing.T) {
	g := New(10)
	a := g.AddNode(0, RoleSample)
	p := g.AddNode(1, RoleInternal)

	tests := []struct {
		name   string
		parent int
		child  int
		left   float64
		right  float64
		want   error
	}{
		{"unknown parent", 9, a, 0, 10, ErrUnknownNode},
		{"unknown child", p, -1, 0, 10, ErrUnknownNode},
		{"empty interval", p, a, 5, 5, ErrInvalidInterval},
		{"past end", p, a, 0, 11, ErrInvalidInterval},
		{"negative left", p, a, -1, 5, ErrInvalidInterval},
		{"time order", a, p, 0, 10, ErrTimeOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.parent, tt.child, tt.left, tt.right)
			if !errors.Is(err, tt.want) {
				t.Fatalf("AddEdge() error = %v, want %v", err, tt.want)
			}
			if !errs.Is(err, errs.ErrCodeInvalidGraph) {
				t.Errorf("code = %v, want %v", errs.GetCode(err), errs.ErrCodeInvalidGraph)
			}
		})
	}
	if len(g.Edges) != 0 {
		t.Errorf("rejected edges were stored: %v", g.Edges)
	}
}

func TestValidate(t *testing.T) {
	g := twoTreeGraph(t)
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	bad := g.Clone()
	bad.Nodes[2].ID = 7
	if err := bad.Validate(); !errors.Is(err, ErrNonDenseID) {
		t.Errorf("non-dense ids: %v", err)
	}

	bad = g.Clone()
	bad.Nodes[3].Time = 5
	if err := bad.Validate(); !errors.Is(err, ErrTimeOrder) {
		t.Errorf("time order: %v", err)
	}

	bad = g.Clone()
	bad.Nodes[0].Individual = 3
	if err := bad.Validate(); !errors.Is(err, ErrUnknownIndividual) {
		t.Errorf("unknown individual: %v", err)
	}

	bad = g.Clone()
	bad.Nodes[0].Time = -1
	if err := bad.Validate(); !errs.Is(err, errs.ErrCodeInvalidGraph) {
		t.Errorf("negative time: %v", err)
	}

	bad = g.Clone()
	bad.SequenceLength = 0
	if err := bad.Validate(); !errors.Is(err, ErrSequenceLength) {
		t.Errorf("sequence length: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := twoTreeGraph(t)
	g.Attach(0, []float64{1, 2})
	c := g.Clone()
	c.Nodes[0].Time = 99
	c.Individuals[0].Location[0] = 99
	c.Edges[0].Left = 1
	if g.Nodes[0].Time == 99 || g.Individuals[0].Location[0] == 99 || g.Edges[0].Left == 1 {
		t.Error("Clone shares state with the original")
	}
}

func TestRoleJSON(t *testing.T) {
	n := Node{ID: 4, Time: 2, Role: RoleRecombination, Individual: NoIndividual}
	b, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":4,"time":2,"role":"recombination","individual":-1}`
	if string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}
	var back Node
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != n {
		t.Errorf("round trip = %+v, want %+v", back, n)
	}
	if err := json.Unmarshal([]byte(`{"role":"ghost"}`), &back); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestFlags(t *testing.T) {
	if (Node{Role: RoleSample}).Flags() != FlagSample {
		t.Error("sample flag")
	}
	if (Node{Role: RoleRecombination}).Flags() != FlagRecombination {
		t.Error("recombination flag")
	}
	if (Node{Role: RoleInternal}).Flags() != 0 {
		t.Error("internal flag")
	}
}

func TestSetBreakpoints(t *testing.T) {
	g := New(100)
	g.SetBreakpoints([]float64{70, 30, 30, -5, 150, 100})
	if want := []float64{0, 30, 70, 100}; !slices.Equal(g.Breakpoints, want) {
		t.Errorf("Breakpoints = %v, want %v", g.Breakpoints, want)
	}
}

func TestRoots(t *testing.T) {
	g := twoTreeGraph(t)
	if got := g.Roots(); !slices.Equal(got, []int{5}) {
		t.Errorf("Roots = %v, want [5]", got)
	}
}

func TestSummarize(t *testing.T) {
	g := twoTreeGraph(t)
	s := g.Summarize()
	if s.Nodes != 6 || s.Edges != 7 || s.Samples != 3 || s.Trees != 2 {
		t.Errorf("Summarize = %+v", s)
	}
	if !s.HasTemporal {
		t.Error("HasTemporal = false")
	}
	if s.SpatialStatus != SpatialNone {
		t.Errorf("SpatialStatus = %v, want none", s.SpatialStatus)
	}

	for i := 0; i < 3; i++ {
		g.Attach(i, []float64{float64(i), 0})
	}
	if got := g.SpatialStatus(); got != SpatialSampleOnly {
		t.Errorf("SpatialStatus = %v, want sample_only", got)
	}
	for i := 3; i < 6; i++ {
		g.Attach(i, []float64{0, 0})
	}
	if got := g.SpatialStatus(); got != SpatialAll {
		t.Errorf("SpatialStatus = %v, want all", got)
	}

	// A single coordinate is not enough to count as spatial.
	g.Individuals[0].Location = []float64{1}
	if got := g.SpatialStatus(); got != SpatialNone {
		t.Errorf("SpatialStatus with 1D sample = %v, want none", got)
	}
}
