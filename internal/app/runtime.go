package app

import (
	"log/slog"

	"github.com/techdivision/import-app-simple/internal/logging"
	"github.com/techdivision/import-app-simple/internal/module"
	"github.com/techdivision/import-app-simple/internal/store"
)

var _ module.Runtime = (*Simple)(nil)

// Serial returns the serial of the current run.
func (a *Simple) Serial() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serial
}

// Lock takes the single-instance lock for the current run.
func (a *Simple) Lock() error {
	return a.locker.Lock(a.Serial())
}

// Unlock releases the single-instance lock for the current run.
func (a *Simple) Unlock() error {
	return a.locker.Unlock(a.Serial())
}

// Stop ends the run after the current module, rolling it back and exiting
// with code. Codes <= 0 become 1.
func (a *Simple) Stop(reason string, code int) {
	a.Logger().Info(reason, logging.String(logging.FieldEventType, "import_stopped"), logging.Int(logging.FieldExitCode, code))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.finished = false
	a.stopCode = code
	a.reason = reason
}

// Finish ends the run after the current module and commits it.
func (a *Simple) Finish(reason string) {
	logging.Notice(a.Logger(), reason, logging.String(logging.FieldEventType, "import_finished_early"))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.finished = true
	a.stopCode = 0
	a.reason = reason
}

// IsStopped reports whether Stop or Finish was called during the current run.
func (a *Simple) IsStopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Logger returns the logger of the current run.
func (a *Simple) Logger() *slog.Logger {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runLogger == nil {
		return a.logger
	}
	return a.runLogger
}

// SystemLogger returns the named system logger.
func (a *Simple) SystemLogger(name string) (*slog.Logger, error) {
	return a.loggers.Get(name)
}

// Execer returns the query surface of the configured connection, or nil when
// the connection does not provide one.
func (a *Simple) Execer() store.Execer {
	provider, ok := a.conn.(execerProvider)
	if !ok {
		return nil
	}
	return provider.Execer()
}
