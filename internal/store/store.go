// Package store persists analysis runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/phobologic/apiscan/internal/model"
)

const driverName = "sqlite"

// timeLayout is fixed width so started_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by LoadResults for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  api_header TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS usage (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  api_version TEXT NOT NULL,
  plugin TEXT NOT NULL,
  symbol TEXT NOT NULL,
  files INTEGER NOT NULL,
  PRIMARY KEY (run_id, api_version, plugin, symbol)
);
CREATE INDEX IF NOT EXISTS idx_usage_symbol ON usage(symbol);
`

// Run describes one stored run.
type Run struct {
	ID        string
	StartedAt time.Time
	APIHeader string
}

// Store is a results database. It is safe for use by one process at a time.
type Store struct {
	path string
	db   *sql.DB
	now  func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db, now: time.Now}, nil
}

// Close closes the database. A nil Store is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveResults stores results under a new run id, in one transaction.
func (s *Store) SaveResults(ctx context.Context, apiHeader string, results model.Results) (string, error) {
	runID := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, api_header) VALUES (?, ?, ?)`,
		runID, s.now().UTC().Format(timeLayout), apiHeader,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO usage (run_id, api_version, plugin, symbol, files) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, version := range results.Versions() {
		for _, plugin := range results.Plugins(version) {
			tally := results[version][plugin]
			for _, symbol := range tally.Names() {
				if _, err := stmt.ExecContext(ctx, runID, version, plugin, symbol, tally[symbol]); err != nil {
					return "", fmt.Errorf("insert usage %s/%s/%s: %w", version, plugin, symbol, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}
	return runID, nil
}

// LoadResults rebuilds the results stored under runID.
func (s *Store) LoadResults(ctx context.Context, runID string) (model.Results, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT api_version, plugin, symbol, files FROM usage WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	results := make(model.Results)
	for rows.Next() {
		var version, plugin, symbol string
		var files int
		if err := rows.Scan(&version, &plugin, &symbol, &files); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if results[version] == nil || results[version][plugin] == nil {
			results.Set(version, plugin, make(model.UsageTally))
		}
		results[version][plugin][symbol] = files
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage: %w", err)
	}
	return results, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, api_header FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.APIHeader); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("parse run time %q: %w", started, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
