package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chris-a-talbot/sparg-viz/pkg/arg"
	"github.com/chris-a-talbot/sparg-viz/pkg/render"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for spargviz.

To load completions:

Bash:
  $ source <(spargviz completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ spargviz completion bash > /etc/bash_completion.d/spargviz
  # macOS:
  $ spargviz completion bash > $(brew --prefix)/etc/bash_completion.d/spargviz

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ spargviz completion zsh > "${fpath[1]}/_spargviz"

Fish:
  $ spargviz completion fish | source

PowerShell:
  PS> spargviz completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// registerValueCompletions completes the enumerated flags of cmd that
// exist on it.
func registerValueCompletions(cmd *cobra.Command) {
	fixed := func(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}
	if cmd.Flags().Lookup("focus-mode") != nil {
		_ = cmd.RegisterFlagCompletionFunc("focus-mode", fixed(string(arg.FocusSubgraph), string(arg.FocusAncestors)))
	}
	if cmd.Flags().Lookup("format") != nil {
		_ = cmd.RegisterFlagCompletionFunc("format", fixed(
			string(render.FormatSVG), string(render.FormatPNG), string(render.FormatDOT)))
	}
	if cmd.Flags().Lookup("dims") != nil {
		_ = cmd.RegisterFlagCompletionFunc("dims", fixed("0", "1", "2"))
	}
}
