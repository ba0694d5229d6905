package cli

import (
	"github.com/spf13/cobra"

	"github.com/chris-a-talbot/sparg-viz/internal/api"
	"github.com/chris-a-talbot/sparg-viz/pkg/observability/metrics"
	"github.com/chris-a-talbot/sparg-viz/pkg/store"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API used by the web client.

Graphs uploaded or simulated through the API are kept in memory for the
lifetime of the process. Layouts and renders go through the configured
cache. Prometheus metrics are exposed on /metrics unless --no-metrics is
given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := api.Options{
				Store:  store.NewMemory(),
				Runner: runner,
				Logger: c.Logger,
				Config: cfg,
			}
			if !noMetrics {
				m := metrics.New()
				m.Install()
				opts.Metrics = m.Handler()
			}

			return api.New(opts).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: config, :8000)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}
