// Package store owns the SQLite database of the importer.
//
// Conn gives an import run a connection that can share a single transaction
// across all modules when single-transaction mode is enabled. The
// import_runs table keeps a history of runs, fed by HistoryRecorder from the
// lifecycle events published during a run. Writes retry on SQLITE_BUSY with
// a short exponential backoff.
package store
