package module

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/techdivision/import-app-simple/internal/config"
	"github.com/techdivision/import-app-simple/internal/logging"
)

// TypeSQL executes a list of statements on the run's connection.
const TypeSQL = "sql"

// ErrNoDatabase is returned by database modules when the run has no connection.
var ErrNoDatabase = errors.New("no database connection configured")

// SQL runs its statements in order. In single-transaction mode they join the
// shared transaction.
type SQL struct {
	name       string
	statements []string
}

// NewSQL builds a SQL module from the "statements" parameter.
func NewSQL(def config.Module) (Module, error) {
	statements, err := def.StringsParam("statements")
	if err != nil {
		return nil, err
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("params.statements is required")
	}
	return &SQL{name: def.Name, statements: statements}, nil
}

// Process implements Module.
func (m *SQL) Process(ctx context.Context, rt Runtime) error {
	execer := rt.Execer()
	if execer == nil {
		return ErrNoDatabase
	}
	logger := rt.Logger()
	for idx, statement := range m.statements {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := execer.ExecContext(ctx, statement)
		if err != nil {
			return fmt.Errorf("statement %d: %w", idx+1, err)
		}
		affected, _ := res.RowsAffected()
		logger.Debug("statement executed",
			logging.Int("statement", idx+1),
			logging.Int64("rows_affected", affected),
		)
	}
	return nil
}

// HealthCheck implements HealthChecker. Statements must not manage
// transactions themselves since they may run inside the shared transaction.
func (m *SQL) HealthCheck(context.Context) Health {
	for idx, statement := range m.statements {
		fields := strings.Fields(strings.ToUpper(statement))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "BEGIN", "COMMIT", "ROLLBACK", "END", "SAVEPOINT", "RELEASE":
			return Unhealthy(m.name, fmt.Sprintf("statement %d controls the transaction (%s)", idx+1, fields[0]))
		}
	}
	return Healthy(m.name)
}
