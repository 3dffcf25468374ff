package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"grantreview/internal/pipeline"
)

// DefaultDBPath is where `kb index` writes when no path is configured.
const DefaultDBPath = ".grantreview/kb.db"

const kbSchemaVersion = 1

const kbSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	eo_number      TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	source         TEXT NOT NULL DEFAULT '',
	effective_date TEXT,
	keywords       TEXT NOT NULL DEFAULT '[]',
	areas          TEXT NOT NULL DEFAULT '[]',
	pages          INTEGER NOT NULL DEFAULT 0,
	indexed_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS passages (
	eo_number TEXT NOT NULL REFERENCES orders(eo_number) ON DELETE CASCADE,
	page      INTEGER NOT NULL,
	content   TEXT NOT NULL,
	PRIMARY KEY (eo_number, page)
);
`

// SqlIndex persists the knowledge base in SQLite. Ranking happens in
// process over the stored passages.
type SqlIndex struct {
	db  *sql.DB
	emb Embedder
}

// OpenIndex opens or creates a knowledge-base database at path.
func OpenIndex(path string, emb Embedder) (*SqlIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create kb dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	idx := &SqlIndex{db: db, emb: emb}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (x *SqlIndex) migrate() error {
	if _, err := x.db.Exec(kbSchema); err != nil {
		return fmt.Errorf("create kb schema: %w", err)
	}
	var v int
	err := x.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := x.db.Exec("INSERT INTO schema_version(version) VALUES(?)", kbSchemaVersion); err != nil {
			return fmt.Errorf("set kb schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read kb schema version: %w", err)
	case v != kbSchemaVersion:
		return fmt.Errorf("unknown kb schema version %d", v)
	}
	return nil
}

// Close closes the database.
func (x *SqlIndex) Close() error { return x.db.Close() }

// Replace swaps the whole corpus in one transaction.
func (x *SqlIndex) Replace(ctx context.Context, orders []Order, chunks []Chunk) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages"); err != nil {
		return fmt.Errorf("clear passages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM orders"); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, o := range orders {
		kw, _ := json.Marshal(nonNil(o.Keywords))
		areas, _ := json.Marshal(nonNil(o.Areas))
		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders(eo_number, title, source, effective_date, keywords, areas, pages, indexed_at)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			o.EONumber, o.Title, o.Source, nullable(o.EffectiveDate), string(kw), string(areas), o.Pages, now)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.EONumber, err)
		}
	}
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, "INSERT INTO passages(eo_number, page, content) VALUES(?, ?, ?)", c.EONumber, c.Page, c.Text)
		if err != nil {
			return fmt.Errorf("insert passage %s p%d: %w", c.EONumber, c.Page, err)
		}
	}
	return tx.Commit()
}

// Search implements pipeline.Searcher.
func (x *SqlIndex) Search(ctx context.Context, query string, topK int) ([]pipeline.Passage, error) {
	orders, err := x.List(ctx)
	if err != nil {
		return nil, err
	}
	byEO := make(map[string]Order, len(orders))
	for _, o := range orders {
		byEO[o.EONumber] = o
	}
	chunks, err := x.chunks(ctx, "")
	if err != nil {
		return nil, err
	}
	return search(ctx, chunks, byEO, query, topK, x.emb)
}

// List returns every order sorted by EO number.
func (x *SqlIndex) List(ctx context.Context) ([]Order, error) {
	rows, err := x.db.QueryContext(ctx,
		"SELECT eo_number, title, source, effective_date, keywords, areas, pages FROM orders ORDER BY eo_number")
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Get returns one order and its chunks, or ErrNotFound.
func (x *SqlIndex) Get(ctx context.Context, eoNumber string) (Order, []Chunk, error) {
	row := x.db.QueryRowContext(ctx,
		"SELECT eo_number, title, source, effective_date, keywords, areas, pages FROM orders WHERE eo_number = ?", eoNumber)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, nil, ErrNotFound
	}
	if err != nil {
		return Order{}, nil, err
	}
	chunks, err := x.chunks(ctx, eoNumber)
	if err != nil {
		return Order{}, nil, err
	}
	return o, chunks, nil
}

func (x *SqlIndex) chunks(ctx context.Context, eoNumber string) ([]Chunk, error) {
	q := "SELECT eo_number, page, content FROM passages"
	var args []any
	if eoNumber != "" {
		q += " WHERE eo_number = ?"
		args = append(args, eoNumber)
	}
	rows, err := x.db.QueryContext(ctx, q+" ORDER BY eo_number, page", args...)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.EONumber, &c.Page, &c.Text); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (Order, error) {
	var o Order
	var date sql.NullString
	var kw, areas string
	if err := s.Scan(&o.EONumber, &o.Title, &o.Source, &date, &kw, &areas, &o.Pages); err != nil {
		return Order{}, err
	}
	o.EffectiveDate = date.String
	if err := json.Unmarshal([]byte(kw), &o.Keywords); err != nil {
		return Order{}, fmt.Errorf("decode keywords for %s: %w", o.EONumber, err)
	}
	if err := json.Unmarshal([]byte(areas), &o.Areas); err != nil {
		return Order{}, fmt.Errorf("decode areas for %s: %w", o.EONumber, err)
	}
	return o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
