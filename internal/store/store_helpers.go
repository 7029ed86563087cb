package store

import (
	"database/sql"
	"time"
)

const runColumns = "id, serial, status, outcome, exit_code, error_message, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           int64
		serial       string
		status       string
		outcome      sql.NullString
		exitCode     sql.NullInt64
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &serial, &status, &outcome, &exitCode, &errorMessage, &startedRaw, &finishedRaw); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Serial:       serial,
		Status:       RunStatus(status),
		Outcome:      outcome.String,
		ExitCode:     int(exitCode.Int64),
		ErrorMessage: errorMessage.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
