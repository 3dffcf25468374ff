// Package store persists pipeline run history: one row per FinalReport with
// the headline fields broken out for listing and the full report as JSON.
package store

import (
	"time"

	"grantreview/internal/review"
)

// DefaultDBPath is the default relative path for the SQLite DB (per-workspace).
// Open() creates the parent dir (e.g. .grantreview).
const DefaultDBPath = ".grantreview/grantreview.db"

// Run is the listing view of one stored report.
type Run struct {
	RunID                string
	Filename             string
	OverallStatus        review.OverallStatus
	RiskScore            float64
	RiskLevel            review.RiskLevel
	ComplianceStatus     review.ComplianceStatus
	RequiresNotification bool
	CreatedAt            string
}

// RunFilter narrows ListRuns. Zero values match everything; Limit <= 0 means no limit.
type RunFilter struct {
	Limit         int
	OverallStatus review.OverallStatus
	RiskLevel     review.RiskLevel
}

// Store is the persistence facade for run history.
// CLI, watcher and MCP server use only this interface; implementation is SQLite or in-memory.
type Store interface {
	// SaveRun inserts or replaces the report keyed by its run id.
	SaveRun(r *review.FinalReport) error
	// GetRun returns nil, nil when no run has that id.
	GetRun(runID string) (*review.FinalReport, error)
	// ListRuns returns runs newest first.
	ListRuns(f RunFilter) ([]*Run, error)
	DeleteRun(runID string) error
	// CountByStatus tallies stored runs by overall status.
	CountByStatus() (map[review.OverallStatus]int, error)
	Close() error
}

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// RunOf extracts the listing row from a report.
func RunOf(r *review.FinalReport) *Run {
	run := &Run{
		RunID:         r.RunID,
		Filename:      r.Filename(),
		OverallStatus: r.OverallStatus,
		CreatedAt:     r.CompletedAt,
	}
	if run.CreatedAt == "" {
		run.CreatedAt = nowUTC()
	}
	if r.Risk != nil {
		run.RiskScore = r.Risk.OverallScore
		run.RiskLevel = r.Risk.RiskLevel
		run.RequiresNotification = r.Risk.RequiresNotification
	}
	if r.Compliance != nil {
		run.ComplianceStatus = r.Compliance.OverallStatus
	}
	return run
}

func (f RunFilter) match(r *Run) bool {
	if f.OverallStatus != "" && r.OverallStatus != f.OverallStatus {
		return false
	}
	if f.RiskLevel != "" && r.RiskLevel != f.RiskLevel {
		return false
	}
	return true
}

var (
	_ Store = (*SqlStore)(nil)
	_ Store = (*MemStore)(nil)
)
