package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"grantreview/internal/export"
)

type reportFlags struct {
	format     string
	output     string
	chromePath string
	timeout    time.Duration
}

func newReportCmd(a *app) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Export a stored run as JSON, Markdown, HTML or PDF",
		Long: `Render a stored run's final report.

Usage:
  grantreview report 3f2a9c1e                       # Markdown to stdout
  grantreview report 3f2a9c1e --format json
  grantreview report 3f2a9c1e --format pdf -o review.pdf

PDF output prints the HTML report with headless Chrome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.format, "format", "md", "Output format: json, md, html, pdf")
	fl.StringVarP(&f.output, "output", "o", "", "Output file (default stdout; required for pdf)")
	fl.StringVar(&f.chromePath, "chrome", "", "Chrome executable for pdf (default: discover)")
	fl.DurationVar(&f.timeout, "timeout", 30*time.Second, "PDF rendering timeout")
	return cmd
}

func (a *app) runReport(cmd *cobra.Command, runID string, f reportFlags) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := findRun(st, runID)
	if err != nil {
		return err
	}

	var data []byte
	switch f.format {
	case "json":
		data, err = rep.Marshal()
	case "md", "markdown":
		data = []byte(export.Markdown(rep))
	case "html":
		var html string
		html, err = export.HTML(rep)
		data = []byte(html)
	case "pdf":
		if f.output == "" || f.output == "-" {
			return fmt.Errorf("pdf output needs -o <file>")
		}
		data, err = export.PDF(cmd.Context(), rep, export.PDFOptions{ExecPath: f.chromePath, Timeout: f.timeout})
	default:
		return fmt.Errorf("unknown format %q (valid: json, md, html, pdf)", f.format)
	}
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), f.output, data); err != nil {
		return err
	}
	if f.output != "" && f.output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report: %s\n", f.output)
	}
	return nil
}
