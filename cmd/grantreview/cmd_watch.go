package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"grantreview/internal/display"
	"grantreview/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		debounce    time.Duration
		sendEmail   bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Review every proposal dropped into an inbox directory",
		Long: `Watch dir for new proposal documents and review each one as it arrives.
Documents already present are reviewed on start. Reviewed files move to
dir/processed, documents whose review failed move to dir/failed. Every
report is saved to the run history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			serveMetrics(ctx, metricsAddr, svc.metrics)

			ctrl := svc.ctrl
			if cmd.Flags().Changed("send-email") {
				ctrl = ctrl.WithSendEmail(sendEmail)
			}
			out := cmd.OutOrStdout()
			w, err := watch.New(args[0], ctrl, svc.store,
				watch.WithDebounce(debounce),
				watch.WithResults(func(r watch.Result) {
					if r.Report == nil {
						fmt.Fprintf(out, "%s: %v\n", r.Path, r.Err)
						return
					}
					fmt.Fprintf(out, "%s -> %s [%s] run %s\n", r.Path, r.MovedTo,
						display.Status(string(r.Report.OverallStatus)), shortID(r.Report.RunID))
				}),
			)
			if err != nil {
				return err
			}
			err = w.Run(ctx)
			st := w.Stats()
			fmt.Fprintf(out, "Stopped: %d processed, %d failed, %d errors\n", st.Processed, st.Failed, st.Errors)
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&metricsAddr, "metrics-addr", "", "Expose prometheus metrics on this address (default from config)")
	fl.DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is reviewed")
	fl.BoolVar(&sendEmail, "send-email", false, "Deliver escalation emails (default from config)")
	return cmd
}
