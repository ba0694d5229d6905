package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
	"github.com/chris-a-talbot/sparg-viz/pkg/sim"
)

// simulateCommand creates the simulate command for building synthetic ARGs.
func (c *CLI) simulateCommand() *cobra.Command {
	var (
		output  string
		seed    uint64
		noCache bool
		refresh bool
	)
	flags := sim.DefaultParams()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a synthetic ARG",
		Long: `Simulate a synthetic ancestral recombination graph.

The simulation runs backwards in time from the samples, mixing
coalescence and recombination until the requested number of local trees
exists. With --dims 1 or 2 the samples are scattered over the landscape
and every ancestor is placed by a noisy midpoint walk.

Parameters not given on the command line come from the [simulation]
section of the config file. Seeded runs are cached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			p := overlayParams(cmd, cfg.Simulation.Params, flags)
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Simulation.Seed
			}
			return c.runSimulate(cmd.Context(), p, seed, output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: spargviz_sim_s<samples>_t<trees>_d<dims>.json)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 draws one)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")

	cmd.Flags().IntVarP(&flags.Samples, "samples", "n", flags.Samples, "number of sample nodes")
	cmd.Flags().IntVarP(&flags.Trees, "trees", "t", flags.Trees, "number of local trees")
	cmd.Flags().IntVarP(&flags.SpatialDims, "dims", "d", flags.SpatialDims, "spatial dimensions: 0, 1 or 2")
	cmd.Flags().IntVar(&flags.Generations, "generations", flags.Generations, "maximum number of generations")
	cmd.Flags().Float64Var(&flags.XRange, "x-range", flags.XRange, "landscape width")
	cmd.Flags().Float64Var(&flags.YRange, "y-range", flags.YRange, "landscape height (default: x-range)")
	cmd.Flags().Float64Var(&flags.RecombinationProb, "recombination", flags.RecombinationProb, "probability that an event is a recombination")
	cmd.Flags().Float64Var(&flags.CoalescenceRate, "coalescence-rate", flags.CoalescenceRate, "coalescence rate")
	cmd.Flags().Float64Var(&flags.EdgeDensity, "edge-density", flags.EdgeDensity, "event density per generation")
	registerValueCompletions(cmd)

	return cmd
}

// overlayParams applies the flags the user set on top of base.
func overlayParams(cmd *cobra.Command, base, set sim.Params) sim.Params {
	changed := cmd.Flags().Changed
	p := base
	if changed("samples") {
		p.Samples = set.Samples
	}
	if changed("trees") {
		p.Trees = set.Trees
	}
	if changed("dims") {
		p.SpatialDims = set.SpatialDims
	}
	if changed("generations") {
		p.Generations = set.Generations
	}
	if changed("x-range") {
		p.XRange = set.XRange
	}
	if changed("y-range") {
		p.YRange = set.YRange
	}
	if changed("recombination") {
		p.RecombinationProb = set.RecombinationProb
	}
	if changed("coalescence-rate") {
		p.CoalescenceRate = set.CoalescenceRate
	}
	if changed("edge-density") {
		p.EdgeDensity = set.EdgeDensity
	}
	if p.SpatialDims == 2 && p.YRange == 0 {
		p.YRange = p.XRange
	}
	return p
}

// runSimulate builds the graph and writes it as a graph document.
func (c *CLI) runSimulate(ctx context.Context, p sim.Params, seed uint64, output string, noCache, refresh bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := c.newSpinner(ctx, "Simulating...")
	spinner.Start()
	prog := newProgress(c.Logger)
	g, used, hit, err := runner.SimulateWithCacheInfo(ctx, p, seed, refresh)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done("simulated ARG", "seed", used, "cached", hit)

	if output == "" {
		output = fmt.Sprintf("spargviz_sim_s%d_t%d_d%d.json", p.Samples, p.Trees, p.SpatialDims)
	}
	if err := argio.ExportGraph(g, output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Simulated ARG")
	printStats(g.Summarize(), hit)
	printKeyValue("Seed", strconv.FormatUint(used, 10))
	printFile(output)
	printNextStep("Render it", "spargviz render "+output)
	return nil
}
