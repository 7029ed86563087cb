// Package importrun assembles a complete import run from configuration.
//
// It builds the loggers (system plus optional error log), the module list, the
// optional SQLite store with its history recorder, the notification listener
// and the lock store handler, then hands them to app.Simple and processes a
// single run. SIGINT and SIGTERM cancel the run between modules.
package importrun
