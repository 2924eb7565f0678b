// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite log of completed digest runs and the
// papers each one delivered.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const dbFile = "history.db"

// ErrRunNotFound is returned by Picks for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run describes one completed digest.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Topic     string    `json:"topic" yaml:"topic"`
	Subject   string    `json:"subject" yaml:"subject"`
	Window    string    `json:"window" yaml:"window"`
	Interest  string    `json:"interest,omitempty" yaml:"interest,omitempty"`
	Threshold int       `json:"threshold" yaml:"threshold"`

	// Candidates is the size of the built set handed to the scorer.
	Candidates    int  `json:"candidates" yaml:"candidates"`
	Kept          int  `json:"kept" yaml:"kept"`
	FailedBatches int  `json:"failed_batches" yaml:"failed_batches"`
	Mailed        bool `json:"mailed" yaml:"mailed"`
}

// Store is the run log database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/history.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			topic TEXT NOT NULL,
			subject TEXT NOT NULL,
			listing_window TEXT NOT NULL,
			interest TEXT,
			threshold INTEGER,
			candidates INTEGER,
			kept INTEGER,
			failed_batches INTEGER,
			mailed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS picks (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			paper_id TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			main_page TEXT,
			submitted TEXT,
			score INTEGER,
			reason TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_picks_paper_id ON picks(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores run and its picks in one transaction. An empty run.ID is
// assigned a new UUID; the stored id is returned.
func (s *Store) Record(ctx context.Context, run Run, picks []types.Paper) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, topic, subject, listing_window, interest, threshold, candidates, kept, failed_batches, mailed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.Topic, run.Subject, run.Window,
		run.Interest, run.Threshold, run.Candidates, run.Kept, run.FailedBatches, run.Mailed,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO picks (run_id, position, paper_id, title, authors, main_page, submitted, score, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range picks {
		var score sql.NullInt64
		var reason sql.NullString
		if p.Relevance != nil {
			score = sql.NullInt64{Int64: int64(p.Relevance.Score), Valid: true}
			reason = sql.NullString{String: p.Relevance.Reason, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, run.ID, i, p.ID, p.Title, p.Authors, p.MainPage, p.Submitted, score, reason)
		if err != nil {
			return "", fmt.Errorf("inserting pick %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, topic, subject, listing_window, interest, threshold, candidates, kept, failed_batches, mailed
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			interest sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &r.Topic, &r.Subject, &r.Window, &interest,
			&r.Threshold, &r.Candidates, &r.Kept, &r.FailedBatches, &r.Mailed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("run %s: parsing start time: %w", r.ID, err)
		}
		r.Interest = interest.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Picks returns the papers recorded for runID in delivery order.
func (s *Store) Picks(ctx context.Context, runID string) ([]types.Paper, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("looking up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, title, authors, main_page, submitted, score, reason
		 FROM picks WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying picks: %w", err)
	}
	defer rows.Close()

	papers := []types.Paper{}
	for rows.Next() {
		var (
			p      types.Paper
			score  sql.NullInt64
			reason sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.MainPage, &p.Submitted, &score, &reason); err != nil {
			return nil, fmt.Errorf("scanning pick: %w", err)
		}
		if score.Valid {
			p.Relevance = &types.Relevance{Score: int(score.Int64), Reason: reason.String}
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// Delivered reports which of ids appeared in any earlier run, with the
// time of the first such run.
func (s *Store) Delivered(ctx context.Context, ids []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT min(r.started_at) FROM picks p JOIN runs r ON r.id = p.run_id WHERE p.paper_id = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing lookup: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		var first sql.NullString
		if err := stmt.QueryRowContext(ctx, id).Scan(&first); err != nil {
			return nil, fmt.Errorf("looking up %s: %w", id, err)
		}
		if !first.Valid {
			continue
		}
		t, err := time.Parse(time.RFC3339, first.String)
		if err != nil {
			return nil, fmt.Errorf("paper %s: parsing run time: %w", id, err)
		}
		out[id] = t
	}
	return out, nil
}

// Undelivered returns the papers of set that no earlier run delivered,
// in their original order.
func (s *Store) Undelivered(ctx context.Context, set []types.Paper) ([]types.Paper, error) {
	ids := make([]string, len(set))
	for i, p := range set {
		ids[i] = p.ID
	}
	seen, err := s.Delivered(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]types.Paper, 0, len(set))
	for _, p := range set {
		if _, ok := seen[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}
