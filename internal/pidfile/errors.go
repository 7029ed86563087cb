package pidfile

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrAlreadyRunning marks acquisition failures caused by another holder of the lock store.
	ErrAlreadyRunning = errors.New("import already running")
	// ErrLineNotFound marks a release whose serial was missing from the lock store.
	ErrLineNotFound = errors.New("serial not found in lock file")
)

// AlreadyRunningError reports that the lock store is exclusively locked by
// another process (or another Handler in this process).
type AlreadyRunningError struct {
	Path string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("lock file %s is already in use", e.Path)
}

func (e *AlreadyRunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// LineNotFoundError reports that the lock store no longer contains the serial
// being released, which means it was modified externally.
type LineNotFoundError struct {
	Serial string
	Path   string
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("serial %s not found in lock file %s", e.Serial, e.Path)
}

func (e *LineNotFoundError) Is(target error) bool {
	return target == ErrLineNotFound
}

// FileNotFoundError reports that the lock store vanished while it was held.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("lock file %s not found", e.Path)
}

func (e *FileNotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// IOError wraps any other read, write or lock failure on the lock store.
type IOError struct {
	Op     string
	Serial string
	Path   string
	Err    error
}

func (e *IOError) Error() string {
	switch e.Op {
	case opAcquire:
		return fmt.Sprintf("can't write serial %s to lock file %s: %v", e.Serial, e.Path, e.Err)
	case opRelease:
		return fmt.Sprintf("can't remove serial %s from lock file %s: %v", e.Serial, e.Path, e.Err)
	default:
		return fmt.Sprintf("lock file %s: %s: %v", e.Path, e.Op, e.Err)
	}
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FatalError is produced by Guard when a run panics while holding the lock.
type FatalError struct {
	Serial string
	Value  any
	Stack  []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("import %s aborted: %v", e.Serial, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *FatalError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

const (
	opAcquire = "acquire"
	opRelease = "release"
	opRead    = "read"
	opRemove  = "remove"
)
