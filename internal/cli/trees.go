package cli

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	argio "github.com/chris-a-talbot/sparg-viz/pkg/io"
)

// treesCommand creates the trees command that browses local trees.
func (c *CLI) treesCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "trees [graph.json]",
		Short: "Browse the local trees of an ARG",
		Long: `Browse the local trees of an ARG.

Every genome segment between two breakpoints has its own genealogy.
trees lists them with their interval, roots and the recombination nodes
they pass through. Use --plain to print the table without the
interactive browser.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := argio.ImportGraph(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}
			model := NewTreeListModel(filepath.Base(args[0]), g)
			if plain {
				fmt.Println(StyleTitle.Render(model.Title))
				printStats(g.Summarize(), false)
				fmt.Println(treeTable(model.Rows, -1))
				return nil
			}
			_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the table and exit")

	return cmd
}
