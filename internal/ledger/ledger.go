// Package ledger records sync runs and their per-dataset outcomes in an
// embedded SQLite database.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// FileName is the ledger database name inside the state directory.
const FileName = "ledger.db"

// Ledger errors.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrClosed      = errors.New("ledger is closed")
)

// Status is the outcome of a run or of one dataset within it.
type Status string

// Run and dataset statuses.
const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Run is one invocation of the sync engine.
type Run struct {
	ID         string     `json:"run_id" yaml:"run_id"`
	Status     Status     `json:"status" yaml:"status"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Datasets   int        `json:"datasets" yaml:"datasets"`
	Failed     int        `json:"failed" yaml:"failed"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// DatasetRun is the outcome of reconciling one dataset.
type DatasetRun struct {
	RunID           string    `json:"run_id" yaml:"run_id"`
	Dataset         string    `json:"dataset" yaml:"dataset"`
	Source          string    `json:"source" yaml:"source"`
	Destination     string    `json:"destination" yaml:"destination"`
	MergeKey        string    `json:"merge_key,omitempty" yaml:"merge_key,omitempty"`
	SourceRows      int       `json:"source_rows" yaml:"source_rows"`
	DestinationRows int       `json:"destination_rows" yaml:"destination_rows"`
	Superseded      int       `json:"superseded" yaml:"superseded"`
	Retained        int       `json:"retained" yaml:"retained"`
	ResultRows      int       `json:"result_rows" yaml:"result_rows"`
	BackupPath      string    `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	SnapshotPath    string    `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty"`
	Status          Status    `json:"status" yaml:"status"`
	Error           string    `json:"error,omitempty" yaml:"error,omitempty"`
	RecordedAt      time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Ledger is a handle on the run database. It is safe for concurrent use.
type Ledger struct {
	mu sync.Mutex
	db *sql.DB
}

// NewRunID returns a UUID v7 run identifier. V7 IDs sort by creation time.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Open opens or creates the ledger at path and applies the schema.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database. Close is idempotent.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// BeginRun records the start of run id.
func (l *Ledger) BeginRun(ctx context.Context, id string, started time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, status, started_at) VALUES (?, ?, ?)`,
		id, string(StatusRunning), formatTime(started))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", id, err)
	}
	return nil
}

// RecordDataset stores d and updates its run's counters in one transaction.
func (l *Ledger) RecordDataset(ctx context.Context, d DatasetRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}
	if d.RecordedAt.IsZero() {
		d.RecordedAt = time.Now()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	failed := 0
	if d.Status == StatusFailed {
		failed = 1
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET datasets = datasets + 1, failed = failed + ? WHERE run_id = ?`,
		failed, d.RunID)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", d.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, d.RunID)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO dataset_runs (
    run_id, dataset, source, destination, merge_key,
    source_rows, destination_rows, superseded, retained, result_rows,
    backup_path, snapshot_path, status, error, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunID, d.Dataset, d.Source, d.Destination, d.MergeKey,
		d.SourceRows, d.DestinationRows, d.Superseded, d.Retained, d.ResultRows,
		d.BackupPath, d.SnapshotPath, string(d.Status), d.Error, formatTime(d.RecordedAt))
	if err != nil {
		return fmt.Errorf("inserting dataset %s: %w", d.Dataset, err)
	}
	return tx.Commit()
}

// FinishRun stamps run id with its final status.
func (l *Ledger) FinishRun(ctx context.Context, id string, status Status, finished time.Time, errText string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE run_id = ?`,
		string(status), formatTime(finished), errText, id)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `run_id, status, started_at, finished_at, datasets, failed, error`

// Runs returns the most recent runs, newest first. A limit of zero or less
// returns every run.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns run id, or ErrRunNotFound.
func (l *Ledger) Run(ctx context.Context, id string) (Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return Run{}, ErrClosed
	}
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Datasets returns the dataset outcomes of run runID in processing order.
func (l *Ledger) Datasets(ctx context.Context, runID string) ([]DatasetRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}
	rows, err := l.db.QueryContext(ctx, `SELECT
    run_id, dataset, source, destination, merge_key,
    source_rows, destination_rows, superseded, retained, result_rows,
    backup_path, snapshot_path, status, error, recorded_at
FROM dataset_runs WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying datasets of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []DatasetRun
	for rows.Next() {
		var (
			d        DatasetRun
			status   string
			recorded string
		)
		if err := rows.Scan(
			&d.RunID, &d.Dataset, &d.Source, &d.Destination, &d.MergeKey,
			&d.SourceRows, &d.DestinationRows, &d.Superseded, &d.Retained, &d.ResultRows,
			&d.BackupPath, &d.SnapshotPath, &status, &d.Error, &recorded,
		); err != nil {
			return nil, fmt.Errorf("scanning dataset run: %w", err)
		}
		d.Status = Status(status)
		if d.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r        Run
		status   string
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&r.ID, &status, &started, &finished, &r.Datasets, &r.Failed, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	r.Status = Status(status)
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if finished.Valid && finished.String != "" {
		ft, err := parseTime(finished.String)
		if err != nil {
			return Run{}, err
		}
		r.FinishedAt = &ft
	}
	return r, nil
}

// timeLayout is fixed width so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
