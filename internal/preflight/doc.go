// Package preflight provides readiness checks for the filesystem paths and
// the database an import run depends on.
//
// The CLI "importer preflight" command runs RunAll and prints each result.
// Individual checks (CheckDirectoryAccess, CheckFreeSpace, CheckLockStore,
// CheckDatabase, CheckModules) are exported for callers that only need one.
// Checks never modify the lock store.
package preflight
