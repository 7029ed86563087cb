package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/techdivision/import-app-simple/internal/module"
	"github.com/techdivision/import-app-simple/internal/pidfile"
	"github.com/techdivision/import-app-simple/internal/store"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minMiB mebibytes available to unprivileged users. A threshold of zero
// disables the check.
func CheckFreeSpace(name, path string, minMiB int) Result {
	if minMiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeMiB := uint64(stat.Bavail) * uint64(stat.Bsize) / (1 << 20)
	if freeMiB < uint64(minMiB) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d MiB free, need %d MiB)", path, freeMiB, minMiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, freeMiB)}
}

// CheckLockStore reports whether the lock store at path is free. A held lock
// means another import is running; leftover serials without a holder are
// reported as stale but do not fail the check.
func CheckLockStore(name, path string) Result {
	locked, err := pidfile.Locked(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if locked {
		return Result{Name: name, Detail: fmt.Sprintf("%s (locked by a running import)", path)}
	}
	serials, err := pidfile.ReadSerials(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if len(serials) > 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (free, %d stale serial(s): %s)", path, len(serials), strings.Join(serials, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (free)", path)}
}

// CheckDatabase opens the run database read-write and verifies its schema.
func CheckDatabase(ctx context.Context, name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if err := unix.Access(filepath.Dir(path), unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory not writable: %v)", path, err)}
	}
	st, err := store.OpenPath(path)
	if err != nil {
		if errors.Is(err, store.ErrSchemaMismatch) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: schema mismatch)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer st.Close()

	health, err := st.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if health.Error != "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, health.Error)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema v%d)", path, health.SchemaVersion)}
}

// CheckModules converts module health reports into preflight results.
func CheckModules(ctx context.Context, instances []module.Instance) []Result {
	reports := module.CheckAll(ctx, instances)
	results := make([]Result, 0, len(reports))
	for _, report := range reports {
		detail := report.Detail
		if detail == "" {
			detail = "Ready"
		}
		results = append(results, Result{
			Name:   "Module " + report.Name,
			Passed: report.Ready,
			Detail: detail,
		})
	}
	return results
}
