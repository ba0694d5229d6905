package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
	"github.com/chris-a-talbot/sparg-viz/pkg/store"
)

// inferCommand creates the infer command for estimating ancestral locations.
func (c *CLI) inferCommand() *cobra.Command {
	var output, table string

	cmd := &cobra.Command{
		Use:   "infer [graph.json]",
		Short: "Infer the locations of ancestral nodes",
		Long: `Infer the locations of ancestral nodes from located samples.

Without an [inference] command in the config, every ancestor is placed
at the midpoint of its children. With one, the graph and its sample
locations are handed to that program and its location table is read
back. Nodes the estimator does not report keep their locations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfer(cmd.Context(), args[0], output, table)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>_inferred.json)")
	cmd.Flags().StringVar(&table, "table", "", "also write the inferred locations as CSV to this file")

	return cmd
}

func (c *CLI) runInfer(ctx context.Context, input, output, table string) error {
	g, err := argio.ImportGraph(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := c.newSpinner(ctx, "Inferring locations...")
	spinner.Start()
	out, err := runner.InferLocations(ctx, g)
	spinner.Stop()
	if err != nil {
		return err
	}

	var inferred []int
	for _, n := range out.Nodes {
		if len(g.Location(n.ID)) == 0 && len(out.Location(n.ID)) > 0 {
			inferred = append(inferred, n.ID)
		}
	}

	if output == "" {
		output = filepath.Join(filepath.Dir(input), store.InferredName(filepath.Base(input))+".json")
	}
	if err := argio.ExportGraph(out, output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Inferred %d locations", len(inferred))
	printStats(out.Summarize(), false)
	printFile(output)

	if table != "" {
		f, err := os.Create(table)
		if err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
		if err := argio.WriteLocations(f, out, inferred); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", table, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		printFile(table)
	}
	return nil
}
