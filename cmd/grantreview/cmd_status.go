package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"grantreview/internal/display"
	"grantreview/internal/format"
	"grantreview/internal/review"
	"grantreview/internal/store"
)

type statusFlags struct {
	limit     int
	status    string
	riskLevel string
	delete    bool
}

func newStatusCmd(a *app) *cobra.Command {
	var f statusFlags
	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "List stored runs or show one run's summary",
		Long: `Without arguments, list recent runs newest first. With a run id (or a
unique prefix of one), print that run's review summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&f.limit, "limit", "n", 20, "Maximum runs to list (0 = all)")
	fl.StringVar(&f.status, "status", "", "Only runs with this overall status (e.g. requires_legal_review)")
	fl.StringVar(&f.riskLevel, "risk", "", "Only runs with this risk level (low, medium, medium_high, high)")
	fl.BoolVar(&f.delete, "delete", false, "Delete the given run instead of showing it")
	return cmd
}

func (a *app) openStore() (store.Store, error) {
	st, err := store.Open(a.cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func (a *app) runStatus(cmd *cobra.Command, args []string, f statusFlags) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		rep, err := findRun(st, args[0])
		if err != nil {
			return err
		}
		if f.delete {
			if err := st.DeleteRun(rep.RunID); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted run %s (%s)\n", rep.RunID, rep.Filename())
			return nil
		}
		fmt.Fprintln(out, rep.SummaryText())
		return nil
	}
	if f.delete {
		return fmt.Errorf("--delete needs a run id")
	}

	runs, err := st.ListRuns(store.RunFilter{
		Limit:         f.limit,
		OverallStatus: review.OverallStatus(f.status),
		RiskLevel:     review.RiskLevel(f.riskLevel),
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored yet. Run 'grantreview analyze <document>' to review a proposal.")
		return nil
	}

	tbl := format.NewTable(format.ASCII)
	tbl.Header("Run", "Document", "Status", "Risk", "Compliance", "Escalate", "Completed")
	for _, r := range runs {
		risk := "-"
		if r.RiskLevel != "" {
			risk = display.RiskLevelWithScore(string(r.RiskLevel), r.RiskScore)
		}
		compliance := "-"
		if r.ComplianceStatus != "" {
			compliance = display.Status(string(r.ComplianceStatus))
		}
		tbl.Row(shortID(r.RunID), filepath.Base(r.Filename), display.Status(string(r.OverallStatus)), risk,
			compliance, format.BoolMark(r.RequiresNotification), format.FmtTimestamp(r.CreatedAt))
	}
	fmt.Fprintln(out, tbl.String())

	counts, err := st.CountByStatus()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Totals: %s\n", statusTotals(counts))
	return nil
}

// findRun resolves a full run id or a unique prefix.
func findRun(st store.Store, id string) (*review.FinalReport, error) {
	rep, err := st.GetRun(id)
	if err != nil {
		return nil, err
	}
	if rep != nil {
		return rep, nil
	}
	runs, err := st.ListRuns(store.RunFilter{})
	if err != nil {
		return nil, err
	}
	var match string
	for _, r := range runs {
		if !strings.HasPrefix(r.RunID, id) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
		}
		match = r.RunID
	}
	if match == "" {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return st.GetRun(match)
}

func statusTotals(counts map[review.OverallStatus]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", display.Status(k), counts[review.OverallStatus(k)]))
	}
	return strings.Join(parts, ", ")
}
