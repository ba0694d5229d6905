package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/config"
	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
	"github.com/chris-a-talbot/sparg-viz/pkg/layout"
	"github.com/chris-a-talbot/sparg-viz/pkg/pipeline"
)

// layoutFlags are the flags shared by the layout and render commands.
type layoutFlags struct {
	opts      layout.Options
	focus     int
	focusMode string
	noCache   bool
	refresh   bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.opts.MaxSamples, "max-samples", "m", 0, "sample budget (default: config, clamped to the graph)")
	cmd.Flags().Float64Var(&f.opts.Width, "width", 0, "canvas width (default: config)")
	cmd.Flags().Float64Var(&f.opts.Height, "height", 0, "canvas height (default: config)")
	cmd.Flags().IntVar(&f.focus, "focus", -1, "restrict the layout to the neighbourhood of this node")
	cmd.Flags().StringVar(&f.focusMode, "focus-mode", string(arg.FocusSubgraph), "focus mode: subgraph (descendants) or parent (ancestors)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached results")
}

// request builds the layout request, filling unset canvas options from
// the config. The sample budget is clamped to the graph.
func (f *layoutFlags) request(cfg *config.Config) (pipeline.LayoutRequest, error) {
	opts := cfg.Layout
	if f.opts.MaxSamples != 0 {
		opts.MaxSamples = f.opts.MaxSamples
	}
	if f.opts.Width != 0 {
		opts.Width = f.opts.Width
	}
	if f.opts.Height != 0 {
		opts.Height = f.opts.Height
	}
	req := pipeline.LayoutRequest{Layout: opts, Clamp: true, Refresh: f.refresh}
	if f.focus >= 0 {
		mode, err := arg.ParseFocusMode(f.focusMode)
		if err != nil {
			return req, err
		}
		focus := f.focus
		req.Focus = &focus
		req.FocusMode = mode
	}
	return req, nil
}

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute the layout of an ARG",
		Long: `Compute the layout of an ARG.

The layout command takes a graph document (produced by 'simulate' or any
tool writing the same format), downsamples it to the sample budget,
orders the samples so that similar genealogies sit together and places
every ancestor to minimise edge crossings.

The output is a layout.json file that 'render' and the web client draw.
Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, &flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	flags.register(cmd)
	registerValueCompletions(cmd)

	return cmd
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, output string, flags *layoutFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, err := c.computeLayout(ctx, runner, input, flags)
	if err != nil {
		return err
	}

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := argio.WriteJSON(f, res); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	printFile(output)
	printNextStep("Draw it", "spargviz render "+input)
	return nil
}

// computeLayout reads input and lays it out with the runner.
func (c *CLI) computeLayout(ctx context.Context, runner *pipeline.Runner, input string, flags *layoutFlags) (*layout.Result, error) {
	g, err := argio.ImportGraph(input)
	if err != nil {
		return nil, fmt.Errorf("load graph %s: %w", input, err)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	req, err := flags.request(cfg)
	if err != nil {
		return nil, err
	}

	spinner := c.newSpinner(ctx, "Computing layout...")
	spinner.Start()
	prog := newProgress(c.Logger)
	res, hit, err := runner.ComputeLayoutWithCacheInfo(ctx, g, req)
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	prog.done("computed layout", "nodes", len(res.Nodes), "links", len(res.Links), "cached", hit)

	printSuccess("Laid out %s", filepath.Base(input))
	printStats(g.Summarize(), hit)
	if res.Downsampled {
		printDetail("downsampled %d → %d samples", res.SourceSamples, len(res.SampleOrder))
	}
	return res, nil
}
