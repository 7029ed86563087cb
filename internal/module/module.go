package module

import (
	"context"
	"log/slog"

	"github.com/techdivision/import-app-simple/internal/store"
)

// Module is one processing step of an import. Modules run in configured order,
// once per import.
type Module interface {
	Process(ctx context.Context, rt Runtime) error
}

// Runtime is the view of the running import a module works against.
type Runtime interface {
	// Serial returns the serial of the running import.
	Serial() string
	// Lock takes the single-instance lock for the running import. The
	// orchestrator already holds it while modules run, so this is a no-op
	// there.
	Lock() error
	// Unlock releases the single-instance lock.
	Unlock() error
	// Stop ends the import after the current module. The run is rolled back
	// and the process exits with code.
	Stop(reason string, code int)
	// Finish ends the import after the current module. The run is committed
	// and the process exits with 0.
	Finish(reason string)
	// IsStopped reports whether Stop or Finish was called.
	IsStopped() bool
	// Logger returns the run logger, tagged with the serial.
	Logger() *slog.Logger
	// SystemLogger returns the named system logger.
	SystemLogger(name string) (*slog.Logger, error)
	// Execer returns the shared transaction in single-transaction mode and
	// the database handle otherwise. It is nil when no database is configured.
	Execer() store.Execer
}

// Instance is a built module together with its configured identity.
type Instance struct {
	Name   string
	Type   string
	Module Module
}

// Health summarizes the readiness of a configured module.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthChecker is implemented by modules that can verify their own
// configuration before an import starts.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}
