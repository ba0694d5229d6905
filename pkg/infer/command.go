package infer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
)

// DefaultTimeout bounds a single inference run.
const DefaultTimeout = 2 * time.Minute

// Argument placeholders substituted by [Command].
const (
	PlaceholderGraph     = "{graph}"
	PlaceholderLocations = "{locations}"
	PlaceholderOutput    = "{output}"
)

// maxStderr is how much of the tool's stderr ends up in error messages.
const maxStderr = 2048

// Command runs an external inference program.
//
// The graph is written as a graph document and the sample locations as a
// location table into a scratch directory. Args may reference those files
// and the expected output table with the placeholders {graph}, {locations}
// and {output}; without placeholders the three paths are appended in that
// order. The program must write a location table to the output path.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func (c Command) Infer(ctx context.Context, g *arg.Graph) (map[int][]float64, error) {
	if c.Path == "" {
		return nil, errs.New(errs.ErrCodeUnsupported, "no inference command configured")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "spargviz-infer-")
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "scratch directory")
	}
	defer os.RemoveAll(dir)

	paths := map[string]string{
		PlaceholderGraph:     filepath.Join(dir, "graph.json"),
		PlaceholderLocations: filepath.Join(dir, "locations.csv"),
		PlaceholderOutput:    filepath.Join(dir, "inferred.csv"),
	}
	if err := argio.ExportGraph(g, paths[PlaceholderGraph]); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "write graph")
	}
	if err := writeLocations(paths[PlaceholderLocations], g); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "write locations")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, c.args(paths)...)
	cmd.Dir = dir
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.ErrCodeTimeout, err, "inference exceeded %s", timeout)
		}
		return nil, errs.Wrap(errs.ErrCodeInferenceFailed, err, "%s: %s", filepath.Base(c.Path), tail(stderr.String()))
	}

	f, err := os.Open(paths[PlaceholderOutput])
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInferenceFailed, err, "no output from %s", filepath.Base(c.Path))
	}
	defer f.Close()
	return argio.ReadLocations(f)
}

func (c Command) args(paths map[string]string) []string {
	var out []string
	substituted := false
	for _, a := range c.Args {
		for ph, p := range paths {
			if strings.Contains(a, ph) {
				a = strings.ReplaceAll(a, ph, p)
				substituted = true
			}
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, paths[PlaceholderGraph], paths[PlaceholderLocations], paths[PlaceholderOutput])
	}
	return out
}

func writeLocations(path string, g *arg.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := argio.WriteLocations(f, g, g.Samples()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}
	if s == "" {
		return "no error output"
	}
	return s
}

var _ Inferrer = Command{}
