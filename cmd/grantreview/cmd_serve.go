package main

import (
	"context"

	"github.com/spf13/cobra"

	"grantreview/internal/logging"
	"grantreview/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Starts an MCP server over stdin/stdout exposing run_pipeline, get_report,
list_runs and search_knowledge_base.

The server monitors its parent process. When the client that spawned it
exits, the server shuts down instead of lingering.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			svc, err := a.openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			serveMetrics(ctx, metricsAddr, svc.metrics)

			srv := mcp.NewServer(svc.ctrl, svc.store, svc.search)
			mcp.WatchParent(ctx, cancel)

			logging.New("mcp").Info("starting grantreview MCP server over stdio (parent watchdog active)")
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose prometheus metrics on this address (default from config)")
	return cmd
}
