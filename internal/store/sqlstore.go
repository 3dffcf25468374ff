package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"grantreview/internal/review"

	_ "modernc.org/sqlite"
)

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullFloat converts a sql.NullFloat64 to a plain float64 (0 if null).
func nullFloat(nf sql.NullFloat64) float64 {
	if nf.Valid {
		return nf.Float64
	}
	return 0
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .grantreview) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SqlStore) Close() error { return s.db.Close() }

// migrate creates the schema on a new database and refuses databases
// written by a newer build.
func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Interrupted install: the DDL is idempotent, so finish it.
		return s.freshInstall()
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != currentSchemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (s *SqlStore) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveRun implements Store.
func (s *SqlStore) SaveRun(rep *review.FinalReport) error {
	if rep == nil || rep.RunID == "" {
		return errors.New("save run: report has no run id")
	}
	payload, err := rep.Marshal()
	if err != nil {
		return err
	}
	r := RunOf(rep)
	_, err = s.db.Exec(`INSERT INTO runs(run_id, filename, overall_status, risk_score, risk_level,
			compliance_status, requires_notification, created_at, payload)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			filename = excluded.filename,
			overall_status = excluded.overall_status,
			risk_score = excluded.risk_score,
			risk_level = excluded.risk_level,
			compliance_status = excluded.compliance_status,
			requires_notification = excluded.requires_notification,
			created_at = excluded.created_at,
			payload = excluded.payload`,
		r.RunID, r.Filename, string(r.OverallStatus), riskScore(rep), nullable(string(r.RiskLevel)),
		nullable(string(r.ComplianceStatus)), boolInt(r.RequiresNotification), r.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

// GetRun implements Store.
func (s *SqlStore) GetRun(runID string) (*review.FinalReport, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM runs WHERE run_id = ?", runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return review.UnmarshalReport(payload)
}

// ListRuns implements Store.
func (s *SqlStore) ListRuns(f RunFilter) ([]*Run, error) {
	query := `SELECT run_id, filename, overall_status, risk_score, risk_level,
		compliance_status, requires_notification, created_at FROM runs WHERE 1=1`
	var args []any
	if f.OverallStatus != "" {
		query += " AND overall_status = ?"
		args = append(args, string(f.OverallStatus))
	}
	if f.RiskLevel != "" {
		query += " AND risk_level = ?"
		args = append(args, string(f.RiskLevel))
	}
	query += " ORDER BY created_at DESC, run_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		var (
			r         Run
			status    string
			score     sql.NullFloat64
			level     sql.NullString
			compl     sql.NullString
			notifyInt int
		)
		if err := rows.Scan(&r.RunID, &r.Filename, &status, &score, &level, &compl, &notifyInt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.OverallStatus = review.OverallStatus(status)
		r.RiskScore = nullFloat(score)
		r.RiskLevel = review.RiskLevel(nullStr(level))
		r.ComplianceStatus = review.ComplianceStatus(nullStr(compl))
		r.RequiresNotification = notifyInt != 0
		out = append(out, &r)
	}
	return out, rows.Err()
}

// DeleteRun implements Store. Deleting a missing run is not an error.
func (s *SqlStore) DeleteRun(runID string) error {
	if _, err := s.db.Exec("DELETE FROM runs WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// CountByStatus implements Store.
func (s *SqlStore) CountByStatus() (map[review.OverallStatus]int, error) {
	rows, err := s.db.Query("SELECT overall_status, COUNT(*) FROM runs GROUP BY overall_status")
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	defer rows.Close()
	out := make(map[review.OverallStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[review.OverallStatus(status)] = n
	}
	return out, rows.Err()
}

// riskScore is NULL when the risk stage never produced a section.
func riskScore(rep *review.FinalReport) any {
	if rep.Risk == nil {
		return nil
	}
	return rep.Risk.OverallScore
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
