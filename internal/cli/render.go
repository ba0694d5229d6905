package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chris-a-talbot/sparg-viz/pkg/pipeline"
	"github.com/chris-a-talbot/sparg-viz/pkg/render"
)

// renderOpts holds the output flags of the render command.
type renderOpts struct {
	output  string
	formats []render.Format
	labels  bool
	title   string
}

// renderCommand creates the render command for drawing an ARG.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		opts       renderOpts
		flags      layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render an ARG to SVG, PNG or DOT",
		Long: `Render an ARG to SVG, PNG or DOT.

render computes the layout exactly like 'layout' and draws it with
Graphviz, every node pinned at its layout position. Several formats can
be written at once with a comma-separated --format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(formatsStr)
			if err != nil {
				return err
			}
			opts.formats = formats
			return c.runRender(cmd.Context(), args[0], opts, &flags)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "write node ids inside the nodes")
	cmd.Flags().StringVar(&opts.title, "title", "", `figure title ("-" hides it)`)
	flags.register(cmd)
	registerValueCompletions(cmd)

	return cmd
}

// parseFormats parses the --format flag. An empty flag means SVG.
func parseFormats(s string) ([]render.Format, error) {
	if s == "" {
		return []render.Format{pipeline.DefaultFormat}, nil
	}
	var out []render.Format
	for _, part := range strings.Split(s, ",") {
		f, err := render.ParseFormat(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// outputPath picks the file for one format. A single format writes to the
// --output path as given; several formats share its base name.
func outputPath(input, output string, f render.Format, multiple bool) string {
	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	} else if multiple {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	} else {
		return output
	}
	return base + "." + string(f)
}

// runRender lays the graph out once and writes every requested format.
func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts, flags *layoutFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, err := c.computeLayout(ctx, runner, input, flags)
	if err != nil {
		return err
	}

	ropts := render.Options{Labels: opts.labels, Title: opts.title}
	multiple := len(opts.formats) > 1
	for _, f := range opts.formats {
		prog := newProgress(c.Logger)
		data, hit, err := runner.RenderWithCacheInfo(ctx, res, f, ropts, flags.refresh)
		if err != nil {
			return fmt.Errorf("render %s: %w", f, err)
		}
		prog.done("rendered", "format", f, "bytes", len(data), "cached", hit)

		path := outputPath(input, opts.output, f, multiple)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}
