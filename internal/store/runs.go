package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecordStart marks serial as running. Reusing a serial resets its row.
func (s *Store) RecordStart(ctx context.Context, serial string, at time.Time) error {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return errors.New("record start: serial is required")
	}
	_, err := s.exec(ctx, `
INSERT INTO import_runs (serial, status, started_at)
VALUES (?, ?, ?)
ON CONFLICT(serial) DO UPDATE SET
    status = excluded.status,
    started_at = excluded.started_at,
    outcome = NULL,
    exit_code = NULL,
    error_message = NULL,
    finished_at = NULL`,
		serial, string(RunStatusRunning), formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("record start of %s: %w", serial, err)
	}
	return nil
}

// RecordFinish stores the outcome of serial. A run without a start record is
// inserted with the finish time as its start.
func (s *Store) RecordFinish(ctx context.Context, serial, outcome string, exitCode int, errMsg string, at time.Time) error {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return errors.New("record finish: serial is required")
	}
	finished := formatTime(at)
	_, err := s.exec(ctx, `
INSERT INTO import_runs (serial, status, outcome, exit_code, error_message, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(serial) DO UPDATE SET
    status = excluded.status,
    outcome = excluded.outcome,
    exit_code = excluded.exit_code,
    error_message = excluded.error_message,
    finished_at = excluded.finished_at`,
		serial, string(RunStatusFinished), nullableString(outcome), exitCode, nullableString(errMsg), finished, finished,
	)
	if err != nil {
		return fmt.Errorf("record finish of %s: %w", serial, err)
	}
	return nil
}

// GetRun returns the run recorded for serial, or nil when there is none.
func (s *Store) GetRun(ctx context.Context, serial string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM import_runs WHERE serial = ?`, serial)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", serial, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM import_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneRuns keeps the newest keep runs and deletes the rest. It returns the
// number of deleted rows.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune runs: keep must be >= 0, got %d", keep)
	}
	res, err := s.exec(ctx, `
DELETE FROM import_runs WHERE id NOT IN (
    SELECT id FROM import_runs ORDER BY started_at DESC, id DESC LIMIT ?
)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}
