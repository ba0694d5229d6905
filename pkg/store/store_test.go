package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

func tinyGraph() *arg.Graph {
	g := arg.New(10)
	a := g.AddNode(0, arg.RoleSample)
	b := g.AddNode(0, arg.RoleSample)
	p := g.AddNode(1, arg.RoleInternal)
	_ = g.AddEdge(p, a, 0, 10)
	_ = g.AddEdge(p, b, 0, 10)
	return g
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	e, err := s.Put(ctx, "b_graph", tinyGraph(), SourceUploaded)
	if err != nil {
		t.Fatal(err)
	}
	if e.Summary.Samples != 2 || e.Summary.Edges != 2 {
		t.Errorf("Summary = %+v", e.Summary)
	}
	if _, err := s.Put(ctx, "a_graph", tinyGraph(), SourceSimulated); err != nil {
		t.Fatal(err)
	}

	list, _ := s.List(ctx)
	if len(list) != 2 || list[0].Name != "a_graph" || list[1].Name != "b_graph" {
		t.Errorf("List = %v", list)
	}

	got, err := s.Get(ctx, "b_graph")
	if err != nil || got.Source != SourceUploaded {
		t.Errorf("Get = %+v, %v", got, err)
	}

	if err := s.Delete(ctx, "b_graph"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "b_graph"); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("Get after Delete error = %v", err)
	}
	if err := s.Delete(ctx, "b_graph"); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("second Delete error = %v", err)
	}
}

func TestMemoryPutReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, _ = s.Put(ctx, "g", tinyGraph(), SourceUploaded)
	_, _ = s.Put(ctx, "g", tinyGraph(), SourceInferred)
	got, _ := s.Get(ctx, "g")
	if got.Source != SourceInferred {
		t.Errorf("Source = %s, want inferred", got.Source)
	}
}

func TestMemoryRejectsBadNames(t *testing.T) {
	s := NewMemory()
	for _, name := range []string{"", "../etc", "a/b", ".hidden"} {
		if _, err := s.Put(context.Background(), name, tinyGraph(), SourceUploaded); !errs.Is(err, errs.ErrCodeInvalidName) {
			t.Errorf("Put(%q) error = %v", name, err)
		}
	}
}

func TestMemoryConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("g%d", i%5)
			_, _ = s.Put(ctx, name, tinyGraph(), SourceSimulated)
			_, _ = s.Get(ctx, name)
			_, _ = s.List(ctx)
		}()
	}
	wg.Wait()
	if list, _ := s.List(ctx); len(list) != 5 {
		t.Errorf("got %d entries, want 5", len(list))
	}
}

func TestNewName(t *testing.T) {
	a, b := NewName("sim"), NewName("sim")
	if a == b {
		t.Error("names should be unique")
	}
	if !strings.HasPrefix(a, "sim_") || len(a) != len("sim_")+8 {
		t.Errorf("NewName = %q", a)
	}
	if err := errs.ValidateGraphName(a); err != nil {
		t.Errorf("generated name invalid: %v", err)
	}
}

func TestInferredName(t *testing.T) {
	if got := InferredName("run.json"); got != "run_inferred" {
		t.Errorf("InferredName = %q", got)
	}
}
