package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/techdivision/import-app-simple/internal/config"
	"github.com/techdivision/import-app-simple/internal/logging"
)

// TypeFinishWhenEmpty ends an import early when a count query returns zero.
const TypeFinishWhenEmpty = "finish-when-empty"

const defaultFinishReason = "nothing to import"

// FinishWhenEmpty calls Finish on the runtime when its query yields 0.
type FinishWhenEmpty struct {
	name   string
	query  string
	reason string
}

// NewFinishWhenEmpty builds the module from the "query" and optional "reason"
// parameters.
func NewFinishWhenEmpty(def config.Module) (Module, error) {
	query := def.StringParam("query")
	if query == "" {
		return nil, fmt.Errorf("params.query is required")
	}
	reason := def.StringParam("reason")
	if reason == "" {
		reason = defaultFinishReason
	}
	return &FinishWhenEmpty{name: def.Name, query: query, reason: reason}, nil
}

// Process implements Module.
func (m *FinishWhenEmpty) Process(ctx context.Context, rt Runtime) error {
	execer := rt.Execer()
	if execer == nil {
		return ErrNoDatabase
	}
	var count int64
	if err := execer.QueryRowContext(ctx, m.query).Scan(&count); err != nil {
		return fmt.Errorf("count query: %w", err)
	}
	rt.Logger().Debug("count query evaluated", logging.Int64("count", count))
	if count == 0 {
		rt.Finish(m.reason)
	}
	return nil
}

// HealthCheck implements HealthChecker.
func (m *FinishWhenEmpty) HealthCheck(context.Context) Health {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(m.query)), "SELECT") {
		return Unhealthy(m.name, "query must be a SELECT statement")
	}
	return Healthy(m.name)
}
