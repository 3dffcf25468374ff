package store

// currentSchemaVersion is the schema version this build writes.
const currentSchemaVersion = 1

// schema holds the run history: headline fields as columns for listing,
// the full report as a JSON payload.
var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	run_id                TEXT PRIMARY KEY,
	filename              TEXT NOT NULL,
	overall_status        TEXT NOT NULL,
	risk_score            REAL,
	risk_level            TEXT,
	compliance_status     TEXT,
	requires_notification INTEGER NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL,
	payload               BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(overall_status);
`
