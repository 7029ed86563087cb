// Package pidfile guards an import against concurrent runs.
//
// A lock store is a plain text file holding one serial per line. Handler.Lock
// takes a non-blocking exclusive advisory lock on the store and appends the
// run's serial; Handler.Unlock removes that line again, releases the lock and
// deletes the store once it is empty. Inconsistencies found during release
// (missing file, missing serial) are logged at NOTICE and otherwise ignored so
// a run can always finish.
//
// Handler.Guard is deferred right after a successful Lock and releases the
// serial when the run panics. If the process dies without running deferred
// code the kernel still drops the advisory lock when the descriptor closes;
// the serial line then stays behind until `importer pid clear` removes it.
package pidfile
