package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var baseSchema string

// migrations are applied in order; the schema version of a database is the
// number of migrations it has seen.
var migrations = []string{
	baseSchema,
}

// ErrSchemaMismatch is returned when a database was written by a newer importer.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	).Scan(&tables); err != nil {
		return 0, fmt.Errorf("look up schema_version: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate brings the database up to len(migrations) inside one transaction.
func (s *Store) migrate(ctx context.Context) error {
	version, err := currentVersion(ctx, s.db)
	if err != nil {
		return err
	}
	target := len(migrations)
	switch {
	case version == target:
		return nil
	case version > target:
		return fmt.Errorf("%w: %s is at version %d, this build knows %d",
			ErrSchemaMismatch, s.path, version, target)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := version; i < target; i++ {
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("reset schema version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, target); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
