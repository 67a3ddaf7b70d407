package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// File outcomes recorded in run_files.
const (
	OutcomeNotified    = "notified"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeWriteFailed = "write_failed"
	OutcomeUndelivered = "undelivered"
)

// Run is one recorded tick.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	State      string
	Kind       string
	Mode       string
	Listed     int
	Detected   int
	Staged     int
	Failed     int
	Notified   int
	Error      string
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunFile is the outcome for one file touched by a run.
type RunFile struct {
	RemoteID string
	Name     string
	Change   string
	Outcome  string
	Error    string
}

// Record stores a run and its files in one transaction.
func (s *Store) Record(ctx context.Context, run Run, files []RunFile) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		kind := run.Kind
		if kind == "" {
			kind = "none"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (
                id, started_at, finished_at, state, kind, mode,
                listed, detected, staged, failed, notified, error
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.FinishedAt.UTC().Format(time.RFC3339Nano),
			run.State,
			kind,
			run.Mode,
			run.Listed,
			run.Detected,
			run.Staged,
			run.Failed,
			run.Notified,
			run.Error,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, file := range files {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO run_files (run_id, remote_id, name, change, outcome, error)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, file.RemoteID, file.Name, file.Change, file.Outcome, file.Error,
			); err != nil {
				return fmt.Errorf("insert run file: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, state, kind, mode,
                listed, detected, staged, failed, notified, error
           FROM runs
          ORDER BY started_at DESC, rowid DESC
          LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastCommitted returns the most recent committed run, or nil.
func (s *Store) LastCommitted(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, state, kind, mode,
                listed, detected, staged, failed, notified, error
           FROM runs
          WHERE state = 'committed'
          ORDER BY started_at DESC, rowid DESC
          LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Files returns the per-file outcomes of a run ordered by name.
func (s *Store) Files(ctx context.Context, runID string) ([]RunFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT remote_id, name, change, outcome, error
           FROM run_files
          WHERE run_id = ?
          ORDER BY name, remote_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []RunFile
	for rows.Next() {
		var file RunFile
		if err := rows.Scan(&file.RemoteID, &file.Name, &file.Change, &file.Outcome, &file.Error); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		started, finished string
	)
	if err := row.Scan(
		&run.ID, &started, &finished, &run.State, &run.Kind, &run.Mode,
		&run.Listed, &run.Detected, &run.Staged, &run.Failed, &run.Notified, &run.Error,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return run, nil
}
