package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoTransaction is returned by Commit when no transaction is open.
	ErrNoTransaction = errors.New("no transaction in progress")
	// ErrTransactionActive is returned by BeginTransaction when a transaction is already open.
	ErrTransactionActive = errors.New("transaction already in progress")
)

// Execer is the query surface shared by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn is the connection an import run works on. Between BeginTransaction and
// Commit or Rollback every statement issued through Execer joins one shared
// transaction.
type Conn struct {
	store *Store

	mu sync.Mutex
	tx *sql.Tx
}

// Conn returns a new connection view on the store.
func (s *Store) Conn() *Conn {
	return &Conn{store: s}
}

// BeginTransaction opens the shared transaction.
func (c *Conn) BeginTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return ErrTransactionActive
	}
	tx, err := c.store.db.BeginTx(ensureContext(ctx), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	c.tx = tx
	return nil
}

// Commit commits the shared transaction.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return ErrNoTransaction
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the shared transaction. It is a no-op when none is open.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether the shared transaction is open.
func (c *Conn) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx != nil
}

// Execer returns the open transaction, or the database handle when no
// transaction is open.
func (c *Conn) Execer() Execer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return c.tx
	}
	return c.store.db
}
