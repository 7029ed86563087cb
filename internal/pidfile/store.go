package pidfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"
)

// ReadSerials returns the serials recorded in the lock store at path, in file
// order. A missing store yields no serials.
func ReadSerials(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &IOError{Op: opRead, Path: path, Err: err}
	}
	var serials []string
	for _, line := range splitLines(data) {
		if line != "" {
			serials = append(serials, line)
		}
	}
	return serials, nil
}

// Locked reports whether some process currently holds the lock store at path.
func Locked(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &IOError{Op: opRead, Path: path, Err: err}
	}
	probe := flock.New(path, flock.SetFlag(os.O_RDONLY))
	ok, err := probe.TryLock()
	if err != nil {
		return false, &IOError{Op: opRead, Path: path, Err: err}
	}
	if ok {
		_ = probe.Unlock()
	}
	return !ok, nil
}

// Remove deletes a stale lock store. It refuses with an *AlreadyRunningError
// while another holder has the store locked.
func Remove(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &IOError{Op: opRemove, Path: path, Err: err}
	}

	probe := flock.New(path, flock.SetFlag(os.O_RDONLY))
	ok, err := probe.TryLock()
	if err != nil {
		return &IOError{Op: opRemove, Path: path, Err: err}
	}
	if !ok {
		return &AlreadyRunningError{Path: path}
	}
	defer func() {
		_ = probe.Unlock()
	}()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: opRemove, Path: path, Err: fmt.Errorf("delete: %w", err)}
	}
	return nil
}
