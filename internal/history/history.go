// Package history keeps a SQLite ledger of mission runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dusk-indust/missionplan/internal/orchestrator"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("history: run not found")

// Store is a run ledger backed by a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

var _ orchestrator.Recorder = (*Store)(nil)

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		request TEXT NOT NULL,
		outcome TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		retries INTEGER NOT NULL,
		artifact_path TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts or replaces the run described by r.
func (s *Store) Record(ctx context.Context, r *orchestrator.Report) error {
	if r == nil || r.RunID == "" {
		return errors.New("history: record: report has no run ID")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, request, outcome, category, retries, artifact_path, started_at, finished_at, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Request, string(r.Outcome), string(r.Category), r.Retries, r.ArtifactPath,
		r.StartedAt.UTC(), r.FinishedAt.UTC(), string(data))
	if err != nil {
		return fmt.Errorf("history: record %s: %w", r.RunID, err)
	}
	return nil
}

// Get returns the full report of one run.
func (s *Store) Get(ctx context.Context, id string) (*orchestrator.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get %s: %w", id, err)
	}
	return decode(data)
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*orchestrator.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_json FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []*orchestrator.Report
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary aggregates outcomes across all recorded runs.
type Summary struct {
	Total      int
	Succeeded  int
	Failed     int
	ByCategory map[orchestrator.Category]int
	// AvgRetries is averaged over all runs.
	AvgRetries float64
	LastRun    time.Time
}

// Summarize computes a Summary over the whole ledger.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	sum := &Summary{ByCategory: make(map[orchestrator.Category]int)}

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			AVG(retries)
		FROM runs`, string(orchestrator.OutcomeSucceeded)).Scan(&sum.Total, &sum.Succeeded, &avg)
	if err != nil {
		return nil, fmt.Errorf("history: summarize: %w", err)
	}
	sum.Failed = sum.Total - sum.Succeeded
	sum.AvgRetries = avg.Float64

	if sum.Total > 0 {
		recent, err := s.Recent(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(recent) == 1 {
			sum.LastRun = recent[0].StartedAt
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM runs WHERE category != '' GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("history: summarize categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		sum.ByCategory[orchestrator.Category(cat)] = n
	}
	return sum, rows.Err()
}

func decode(data string) (*orchestrator.Report, error) {
	var r orchestrator.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("history: decode report: %w", err)
	}
	return &r, nil
}
