package preflight

import (
	"context"
	"path/filepath"

	"github.com/techdivision/import-app-simple/internal/config"
	"github.com/techdivision/import-app-simple/internal/module"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Database checks only run when a database is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	pidDir := filepath.Dir(cfg.Paths.PidFile)
	results = append(results, CheckDirectoryAccess("Lock store directory", pidDir))
	results = append(results, CheckFreeSpace("Lock store free space", pidDir, cfg.Preflight.MinFreeMiB))
	results = append(results, CheckLockStore("Lock store", cfg.Paths.PidFile))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Paths.Database != "" {
		results = append(results, CheckDatabase(ctx, "Database", cfg.Paths.Database))
	}

	instances, err := module.DefaultRegistry().Build(cfg.Modules)
	if err != nil {
		results = append(results, Result{Name: "Modules", Detail: err.Error()})
		return results
	}
	results = append(results, CheckModules(ctx, instances)...)

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
