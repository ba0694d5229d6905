package io

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	"github.com/chris-a-talbot/sparg-viz/pkg/rng"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
)

func TestGraphRoundTrip(t *testing.T) {
	p := sim.DefaultParams()
	p.Samples = 6
	p.Trees = 3
	p.SpatialDims = 2
	p.YRange = 8
	g, err := sim.Build(p, rng.New(7))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteGraph(&buf, g); err != nil {
		t.Fatal(err)
	}
	got, err := ReadGraph(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got.SequenceLength != g.SequenceLength || got.Spatial != g.Spatial {
		t.Errorf("header mismatch: %v %v", got.SequenceLength, got.Spatial)
	}
	if !slices.Equal(got.Nodes, g.Nodes) || !slices.Equal(got.Edges, g.Edges) {
		t.Error("node or edge tables differ after round trip")
	}
	if !slices.Equal(got.Breakpoints, g.Breakpoints) {
		t.Errorf("breakpoints = %v, want %v", got.Breakpoints, g.Breakpoints)
	}
	for i := range g.Individuals {
		if !slices.Equal(got.Individuals[i].Location, g.Individuals[i].Location) {
			t.Fatalf("individual %d differs", i)
		}
	}
}

func TestReadGraphMinimal(t *testing.T) {
	doc := `{
	  "sequence_length": 10,
	  "nodes": [
	    {"id": 0, "time": 0, "role": "sample"},
	    {"id": 1, "time": 0, "role": "sample"},
	    {"id": 2, "time": 1}
	  ],
	  "edges": [
	    {"parent": 2, "child": 0, "left": 0, "right": 10},
	    {"parent": 2, "child": 1, "left": 0, "right": 10}
	  ]
	}`
	g, err := ReadGraph(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if g.NumSamples() != 2 || g.Nodes[2].Role != arg.RoleInternal {
		t.Errorf("nodes = %+v", g.Nodes)
	}
	if g.Nodes[0].Individual != arg.NoIndividual {
		t.Errorf("missing individual should decode as NoIndividual, got %d", g.Nodes[0].Individual)
	}
	if !slices.Equal(g.Breakpoints, []float64{0, 10}) {
		t.Errorf("Breakpoints = %v", g.Breakpoints)
	}
}

func TestReadGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errs.Code
	}{
		{"malformed", `{"nodes": [`, errs.ErrCodeInvalidFormat},
		{"foreign format", `{"format": "other", "sequence_length": 1}`, errs.ErrCodeInvalidFormat},
		{"future version", `{"version": 99, "sequence_length": 1}`, errs.ErrCodeInvalidFormat},
		{"bad role", `{"sequence_length": 1, "nodes": [{"id": 0, "role": "root"}]}`, errs.ErrCodeInvalidFormat},
		{"no length", `{"nodes": []}`, errs.ErrCodeInvalidGraph},
		{"sparse ids", `{"sequence_length": 1, "nodes": [{"id": 3}]}`, errs.ErrCodeInvalidGraph},
		{"time order", `{"sequence_length": 1, "nodes": [{"id": 0, "time": 2}, {"id": 1, "time": 1}],
		  "edges": [{"parent": 0, "child": 1, "left": 0, "right": 1}, {"parent": 1, "child": 0, "left": 0, "right": 1}]}`, errs.ErrCodeInvalidGraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.doc))
			if !errs.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestImportExportGraph(t *testing.T) {
	g := arg.New(5)
	a := g.AddNode(0, arg.RoleSample)
	b := g.AddNode(0, arg.RoleSample)
	p := g.AddNode(2, arg.RoleInternal)
	_ = g.AddEdge(p, a, 0, 5)
	_ = g.AddEdge(p, b, 0, 5)

	path := filepath.Join(t.TempDir(), "g.json")
	if err := ExportGraph(g, path); err != nil {
		t.Fatal(err)
	}
	got, err := ImportGraph(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Edges) != 2 {
		t.Errorf("got %d edges", len(got.Edges))
	}
	if _, err := ImportGraph(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestReadLocations(t *testing.T) {
	in := "node_id,x,y\n12,0.5,-1.25\n# comment\n13, 2, 0.4\n7,3\n"
	locs, err := ReadLocations(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := map[int][]float64{12: {0.5, -1.25}, 13: {2, 0.4}, 7: {3}}
	if len(locs) != len(want) {
		t.Fatalf("got %d rows, want %d", len(locs), len(want))
	}
	for id, loc := range want {
		if !slices.Equal(locs[id], loc) {
			t.Errorf("node %d = %v, want %v", id, locs[id], loc)
		}
	}
}

func TestReadLocationsErrors(t *testing.T) {
	for _, in := range []string{
		"1\n",
		"1,2,3,4,5\n",
		"1,2\nx,3\n",
		"1,abc\n",
		"1,2\n1,3\n",
	} {
		if _, err := ReadLocations(strings.NewReader(in)); !errs.Is(err, errs.ErrCodeInvalidFormat) {
			t.Errorf("ReadLocations(%q) error = %v", in, err)
		}
	}
}

func TestWriteLocations(t *testing.T) {
	g := arg.New(1)
	for i := range 3 {
		n := g.AddNode(0, arg.RoleSample)
		if i != 1 {
			g.Attach(n, []float64{float64(i), 0.5})
		}
	}
	var buf bytes.Buffer
	if err := WriteLocations(&buf, g, g.Samples()); err != nil {
		t.Fatal(err)
	}
	if want := "node_id,x,y\n0,0,0.5\n2,2,0.5\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	back, err := ReadLocations(&buf)
	if err != nil || len(back) != 2 {
		t.Errorf("re-read = %v, %v", back, err)
	}
}

func ExampleWriteJSON() {
	_ = WriteJSON(os.Stdout, map[string]int{"nodes": 3})
	fmt.Println("done")
	// Output:
	// {
	//   "nodes": 3
	// }
	// done
}
