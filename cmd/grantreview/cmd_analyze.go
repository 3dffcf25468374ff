package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"grantreview/internal/display"
	"grantreview/internal/extract"
	"grantreview/internal/format"
	"grantreview/internal/logging"
	"grantreview/internal/manifest"
	"grantreview/internal/pipeline"
	"grantreview/internal/review"
)

type analyzeFlags struct {
	dir          string
	manifestPath string
	sendEmail    bool
	parallel     int
	outputDir    string
	quiet        bool
	metricsAddr  string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze [document...]",
		Short: "Review one or more grant proposals",
		Long: `Run the review pipeline on grant proposal documents and store each report.

Usage:
  grantreview analyze proposal.txt                  # single document
  grantreview analyze a.txt b.md --parallel 2       # several documents concurrently
  grantreview analyze --dir submissions/            # every supported file in a directory
  grantreview analyze --manifest batch.yaml         # documents listed in a manifest

Reports are saved to the run history (see 'grantreview status'). With
--output-dir each report is also written as <run-id>.json.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.dir, "dir", "", "Review every supported document in this directory")
	fl.StringVar(&f.manifestPath, "manifest", "", "Batch manifest (YAML or JSON list of documents)")
	fl.BoolVar(&f.sendEmail, "send-email", false, "Deliver escalation emails (default from config)")
	fl.IntVar(&f.parallel, "parallel", 0, "Concurrent runs (default from config or manifest)")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "Also write each report as JSON into this directory")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Print only the results table")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Expose prometheus metrics on this address while running")
	cmd.MarkFlagsMutuallyExclusive("dir", "manifest")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, args []string, f analyzeFlags) error {
	docs, parallel, err := collectDocuments(args, f)
	if err != nil {
		return err
	}
	if parallel <= 0 {
		parallel = a.cfg.Parallel()
	}

	ctx := cmd.Context()
	svc, err := a.openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()
	serveMetrics(ctx, f.metricsAddr, svc.metrics)

	ctrl := svc.ctrl
	if cmd.Flags().Changed("send-email") {
		ctrl = ctrl.WithSendEmail(f.sendEmail)
	}

	log := logging.New("analyze")
	log.Infow("reviewing documents", "count", len(docs), "parallel", parallel)
	results := ctrl.RunBatch(ctx, docs, parallel)

	out := cmd.OutOrStdout()
	tbl := format.NewTable(format.ASCII)
	tbl.Header("Document", "Run", "Status", "Risk", "Compliance", "Escalated")
	failed := 0
	for _, res := range results {
		doc := docs[res.Index]
		rep := res.Report
		if rep == nil {
			failed++
			tbl.Row(doc.Filename, "-", "not started", "-", "-", "-")
			log.Errorw("document not reviewed", "document", doc.Reference, "error", res.Err)
			continue
		}
		if err := svc.store.SaveRun(rep); err != nil {
			return fmt.Errorf("save run %s: %w", rep.RunID, err)
		}
		if f.outputDir != "" {
			if err := writeReportJSON(f.outputDir, rep); err != nil {
				return err
			}
		}
		if res.Err != nil || rep.OverallStatus == review.StatusFailed {
			failed++
			log.Errorw("review failed", "document", doc.Reference, "run_id", rep.RunID, "error", res.Err)
		}
		if !f.quiet && len(results) == 1 {
			fmt.Fprintln(out, rep.SummaryText())
		}
		tbl.Row(filepath.Base(rep.Filename()), shortID(rep.RunID), display.Status(string(rep.OverallStatus)),
			riskCell(rep), complianceCell(rep), format.BoolMark(notified(rep)))
	}
	fmt.Fprintln(out, tbl.String())

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

// collectDocuments resolves positional files, --dir or --manifest into
// documents, plus a worker count from the manifest when it sets one.
func collectDocuments(args []string, f analyzeFlags) ([]pipeline.Document, int, error) {
	parallel := f.parallel
	var paths []string
	switch {
	case f.manifestPath != "":
		m, err := manifest.LoadFromPath(f.manifestPath)
		if err != nil {
			return nil, 0, err
		}
		docs, err := m.Open()
		if err != nil {
			return nil, 0, err
		}
		if parallel <= 0 {
			parallel = m.Parallel
		}
		extra, err := openAll(args)
		if err != nil {
			return nil, 0, err
		}
		return append(docs, extra...), parallel, nil
	case f.dir != "":
		found, err := supportedFiles(f.dir)
		if err != nil {
			return nil, 0, err
		}
		paths = append(found, args...)
	default:
		paths = args
	}
	if len(paths) == 0 {
		return nil, 0, fmt.Errorf("no documents to review\n\nUsage: grantreview analyze <document...>\n       grantreview analyze --dir <directory>\n       grantreview analyze --manifest <file>")
	}
	docs, err := openAll(paths)
	if err != nil {
		return nil, 0, err
	}
	return docs, parallel, nil
}

func openAll(paths []string) ([]pipeline.Document, error) {
	docs := make([]pipeline.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := pipeline.OpenDocument(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// supportedFiles lists non-hidden documents the local extractor handles,
// sorted by name.
func supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !extract.IsSupported(name) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("no supported documents in %s (supported: %s)", dir, strings.Join(extract.Supported, ", "))
	}
	return out, nil
}

func writeReportJSON(dir string, rep *review.FinalReport) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := rep.Marshal()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, rep.RunID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func riskCell(rep *review.FinalReport) string {
	if rep.Risk == nil {
		return "-"
	}
	return display.RiskLevelWithScore(string(rep.Risk.RiskLevel), rep.Risk.OverallScore)
}

func complianceCell(rep *review.FinalReport) string {
	if rep.Compliance == nil {
		return "-"
	}
	return display.Status(string(rep.Compliance.OverallStatus))
}

func notified(rep *review.FinalReport) bool {
	return rep.Notification != nil && rep.Notification.Sent
}
