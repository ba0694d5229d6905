package infer

import (
	"context"
	"os/exec"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

// located returns two samples at (0, 0) and (4, 2) under parent 2, which
// carries 75% of its material from sample 1, and a root 3 above 2.
func located() *arg.Graph {
	g := arg.New(100)
	a := g.AddNode(0, arg.RoleSample)
	b := g.AddNode(0, arg.RoleSample)
	p := g.AddNode(1, arg.RoleInternal)
	r := g.AddNode(2, arg.RoleInternal)
	g.Attach(a, []float64{0, 0})
	g.Attach(b, []float64{4, 2})
	g.Attach(p, nil)
	_ = g.AddEdge(p, a, 0, 25)
	_ = g.AddEdge(p, b, 0, 75)
	_ = g.AddEdge(r, p, 0, 100)
	return g
}

func TestMidpoint(t *testing.T) {
	locs, err := Midpoint{}.Infer(context.Background(), located())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := locs[2], []float64{3, 1.5}; !slices.Equal(got, want) {
		t.Errorf("node 2 = %v, want %v", got, want)
	}
	if got, want := locs[3], []float64{3, 1.5}; !slices.Equal(got, want) {
		t.Errorf("root = %v, want %v", got, want)
	}
	if _, ok := locs[0]; ok {
		t.Error("samples should not be reported")
	}
}

func TestMidpointNeedsLocatedSamples(t *testing.T) {
	g := arg.New(1)
	g.AddNode(0, arg.RoleSample)
	if _, err := (Midpoint{}).Infer(context.Background(), g); !errs.Is(err, errs.ErrCodeInferenceFailed) {
		t.Errorf("error = %v", err)
	}
}

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestCommandEcho(t *testing.T) {
	sh := requireShell(t)
	// Reports every sample back at its own location.
	c := Command{Path: sh, Args: []string{"-c", "cp {locations} {output}"}}
	locs, err := c.Infer(context.Background(), located())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(locs[1], []float64{4, 2}) || len(locs) != 2 {
		t.Errorf("locs = %v", locs)
	}
}

func TestCommandFailure(t *testing.T) {
	sh := requireShell(t)
	c := Command{Path: sh, Args: []string{"-c", "echo boom >&2; exit 3"}}
	_, err := c.Infer(context.Background(), located())
	if !errs.Is(err, errs.ErrCodeInferenceFailed) || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v", err)
	}
}

func TestCommandTimeout(t *testing.T) {
	sh := requireShell(t)
	c := Command{Path: sh, Args: []string{"-c", "sleep 5"}, Timeout: 50 * time.Millisecond}
	if _, err := c.Infer(context.Background(), located()); !errs.Is(err, errs.ErrCodeTimeout) {
		t.Errorf("error = %v", err)
	}
}

func TestCommandUnconfigured(t *testing.T) {
	if _, err := (Command{}).Infer(context.Background(), located()); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("error = %v", err)
	}
}

func TestCommandArgs(t *testing.T) {
	paths := map[string]string{
		PlaceholderGraph:     "/t/g.json",
		PlaceholderLocations: "/t/l.csv",
		PlaceholderOutput:    "/t/o.csv",
	}
	tests := []struct {
		args []string
		want []string
	}{
		{nil, []string{"/t/g.json", "/t/l.csv", "/t/o.csv"}},
		{[]string{"--fast"}, []string{"--fast", "/t/g.json", "/t/l.csv", "/t/o.csv"}},
		{[]string{"--in={graph}", "--out", "{output}"}, []string{"--in=/t/g.json", "--out", "/t/o.csv"}},
	}
	for _, tt := range tests {
		if got := (Command{Args: tt.args}).args(paths); !slices.Equal(got, tt.want) {
			t.Errorf("args(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
