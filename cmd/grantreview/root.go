package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"grantreview/internal/config"
	"grantreview/internal/logging"
)

// app carries global flags and the loaded configuration to subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "grantreview",
		Short: "Review grant proposals for executive-order compliance",
		Long: "grantreview summarizes grant proposals, checks them against executive orders,\n" +
			"scores their risk and escalates high-risk proposals for legal review.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: a.setup,
		Version:           version,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "Config file (YAML)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text, json (default from config)")

	root.AddCommand(
		newAnalyzeCmd(a),
		newStatusCmd(a),
		newReportCmd(a),
		newKBCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and initializes
// logging. Logs go to stderr so stdout stays clean for reports and MCP.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", a.configPath, err)
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	a.cfg = cfg
	return nil
}
