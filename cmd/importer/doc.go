// Command importer runs single-instance imports and inspects their state.
//
// "importer run" processes one import and exits with its status code (0 on
// success or an early finish, 1 when another import holds the lock or the run
// failed, or the code a module stopped the run with). The pid, history,
// preflight and config subcommands inspect the lock store, the run database
// and the environment without starting an import.
package main
