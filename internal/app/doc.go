// Package app orchestrates an import run.
//
// Simple.Process assigns the serial, publishes the lifecycle events, opens the
// shared transaction in single-transaction mode, takes the single-instance
// lock and runs the configured modules in order. Modules may end a run early
// through Stop or Finish. The run's Outcome decides, through one dispatch
// table, the completion log level, the exit code and whether the transaction
// is committed.
package app
