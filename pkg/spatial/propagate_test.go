package spatial

import (
	"math"
	"slices"
	"testing"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/rng"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
)

func spatialParams(dims int) sim.Params {
	p := sim.DefaultParams()
	p.Samples = 8
	p.Trees = 3
	p.SpatialDims = dims
	p.XRange = 10
	p.YRange = 6
	return p
}

func TestPropagateLocatesEveryNode(t *testing.T) {
	for _, dims := range []int{1, 2} {
		for seed := uint64(1); seed <= 20; seed++ {
			g, err := sim.Build(spatialParams(dims), rng.New(seed))
			if err != nil {
				t.Fatal(err)
			}
			out, err := Propagate(g, rng.New(seed+1000))
			if err != nil {
				t.Fatal(err)
			}
			for _, n := range out.Nodes {
				loc := out.Location(n.ID)
				if len(loc) != dims {
					t.Fatalf("dims=%d seed=%d: node %d location %v", dims, seed, n.ID, loc)
				}
				if math.Abs(loc[0]) > 5 || (dims == 2 && math.Abs(loc[1]) > 3) {
					t.Fatalf("node %d location %v out of bounds", n.ID, loc)
				}
			}
			for _, s := range g.Samples() {
				if !slices.Equal(g.Location(s), out.Location(s)) {
					t.Errorf("sample %d moved", s)
				}
			}
			if out.Summarize().SpatialStatus != arg.SpatialAll && dims == 2 {
				t.Errorf("spatial status = %v", out.Summarize().SpatialStatus)
			}
		}
	}
}

func TestPropagateDoesNotMutateInput(t *testing.T) {
	g, err := sim.Build(spatialParams(2), rng.New(4))
	if err != nil {
		t.Fatal(err)
	}
	before := g.Clone()
	if _, err := Propagate(g, rng.New(5)); err != nil {
		t.Fatal(err)
	}
	for i := range g.Individuals {
		if !slices.Equal(g.Individuals[i].Location, before.Individuals[i].Location) {
			t.Fatalf("individual %d changed", i)
		}
	}
}

func TestPropagateNonSpatialNoOp(t *testing.T) {
	g, err := sim.Build(spatialParams(0), rng.New(1))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Propagate(g, rng.New(1))
	if err != nil {
		t.Fatal(err)
	}
	if out != g {
		t.Error("non-spatial graph should be returned unchanged")
	}
}

func TestPropagateDeterministic(t *testing.T) {
	g, _ := sim.Build(spatialParams(2), rng.New(8))
	a, _ := Propagate(g, rng.New(9))
	b, _ := Propagate(g, rng.New(9))
	for i := range a.Individuals {
		if !slices.Equal(a.Individuals[i].Location, b.Individuals[i].Location) {
			t.Fatalf("individual %d differs between runs", i)
		}
	}
}

func TestPropagateMeanOfParents(t *testing.T) {
	// Child 0 has parent 1 over [0, 50) and parent 2 over [50, 100).
	g := arg.New(100)
	g.Spatial = arg.Spatial{Dims: 2, XRange: 100, YRange: 100}
	c := g.AddNode(0, arg.RoleSample)
	p1 := g.AddNode(1, arg.RoleInternal)
	p2 := g.AddNode(2, arg.RoleInternal)
	mid := g.AddNode(0.5, arg.RoleInternal)
	g.Attach(c, []float64{0, 0})
	g.Attach(p1, []float64{10, 20})
	g.Attach(p2, []float64{30, -20})
	g.Attach(mid, nil)
	_ = g.AddEdge(p1, mid, 0, 50)
	_ = g.AddEdge(p2, mid, 50, 100)
	_ = g.AddEdge(mid, c, 0, 100)

	out, err := Propagate(g, rng.New(1), WithNoiseFactor(0))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Location(mid); !slices.Equal(got, []float64{20, 0}) {
		t.Errorf("Location(mid) = %v, want [20 0]", got)
	}
}

func TestPropagateWeightsParentsByTrees(t *testing.T) {
	// mid has parent p1 in the trees [0, 33) and [33, 66), p2 in [66, 100).
	g := arg.New(100)
	g.Spatial = arg.Spatial{Dims: 2, XRange: 100, YRange: 100}
	c := g.AddNode(0, arg.RoleSample)
	p1 := g.AddNode(1, arg.RoleInternal)
	p2 := g.AddNode(2, arg.RoleInternal)
	mid := g.AddNode(0.5, arg.RoleInternal)
	g.Attach(c, []float64{0, 0})
	g.Attach(p1, []float64{10, 20})
	g.Attach(p2, []float64{30, -20})
	g.Attach(mid, nil)
	_ = g.AddEdge(p1, mid, 0, 66)
	_ = g.AddEdge(p2, mid, 66, 100)
	_ = g.AddEdge(mid, c, 0, 100)
	g.SetBreakpoints([]float64{33, 66})

	if n := len(g.Trees()); n != 3 {
		t.Fatalf("got %d local trees, want 3", n)
	}
	out, err := Propagate(g, rng.New(1), WithNoiseFactor(0))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{(2*10 + 30) / 3.0, (2*20 - 20) / 3.0}
	got := out.Location(mid)
	for axis := range want {
		if math.Abs(got[axis]-want[axis]) > 1e-9 {
			t.Fatalf("Location(mid) = %v, want %v", got, want)
		}
	}
}

func TestPropagateClipsToBounds(t *testing.T) {
	g := arg.New(10)
	g.Spatial = arg.Spatial{Dims: 1, XRange: 2}
	c := g.AddNode(0, arg.RoleInternal)
	p := g.AddNode(1000, arg.RoleInternal)
	g.Attach(p, []float64{1})
	g.Attach(c, nil)
	_ = g.AddEdge(p, c, 0, 10)

	for seed := uint64(0); seed < 50; seed++ {
		out, err := Propagate(g, rng.New(seed), WithNoiseFactor(10))
		if err != nil {
			t.Fatal(err)
		}
		if x := out.Location(c)[0]; x < -1 || x > 1 {
			t.Fatalf("seed %d: x = %g outside [-1, 1]", seed, x)
		}
	}
}

func TestPropagateWithBounds(t *testing.T) {
	g := arg.New(10)
	a := g.AddNode(0, arg.RoleSample)
	g.Attach(a, nil)
	if _, err := Propagate(g, rng.New(1), WithBounds(arg.Spatial{Dims: 2, XRange: 4})); !errs.Is(err, errs.ErrCodeInvalidParameter) {
		t.Errorf("missing y range: %v", err)
	}
	out, err := Propagate(g, rng.New(1), WithBounds(arg.Spatial{Dims: 2, XRange: 4, YRange: 4}))
	if err != nil {
		t.Fatal(err)
	}
	if loc := out.Location(a); len(loc) != 2 {
		t.Errorf("Location = %v", loc)
	}
}
