// Package logging assembles structured slog loggers and formatting helpers used
// across the importer.
//
// It owns the configurable console/JSON handlers, the NOTICE level used for
// recoverable lock store inconsistencies, and context-aware helpers that tag
// log lines with the serial of the running import. Registry keeps the named
// system loggers an import run reports to. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape and routing as the rest of the system.
package logging
