package pidfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/techdivision/import-app-simple/internal/logging"
)

const (
	storeFlags = os.O_CREATE | os.O_RDWR | os.O_APPEND
	// acquireAttempts bounds reopening a store that its previous holder
	// unlinked between our open and flock.
	acquireAttempts = 3
)

var errContended = errors.New("lock store is held")

// writeSerial appends one serial line to the locked store.
var writeSerial = func(f *os.File, serial string) error {
	_, err := io.WriteString(f, serial+"\n")
	return err
}

// Handler owns the exclusive lock on one lock store for the lifetime of a run.
type Handler struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	file   *os.File
	serial string
}

// New returns a handler for the lock store at path.
func New(path string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		path:   path,
		logger: logger.With(logging.String(logging.FieldComponent, "pidfile"), logging.String(logging.FieldPidFile, path)),
	}
}

// Path returns the lock store path.
func (h *Handler) Path() string {
	return h.path
}

// Held reports whether the handler currently holds the lock.
func (h *Handler) Held() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file != nil
}

// Serial returns the serial recorded by the last successful Lock, or "" when
// the lock is not held.
func (h *Handler) Serial() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.serial
}

// Lock takes the exclusive advisory lock on the store and appends serial to it.
// The call fails fast with an *AlreadyRunningError when the store is locked
// elsewhere. Locking again for the serial already held is a no-op. Serials are
// stored verbatim, so empty serials and serials with surrounding whitespace or
// line breaks are rejected.
func (h *Handler) Lock(serial string) error {
	switch {
	case strings.TrimSpace(serial) == "":
		return errors.New("lock: serial is required")
	case strings.ContainsAny(serial, "\r\n"):
		return fmt.Errorf("lock: serial %q contains a line break", serial)
	case strings.TrimSpace(serial) != serial:
		return fmt.Errorf("lock: serial %q has surrounding whitespace", serial)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file != nil {
		if h.serial == serial {
			return nil
		}
		return fmt.Errorf("lock: handler already holds serial %s", h.serial)
	}

	f, err := acquire(h.path)
	if errors.Is(err, errContended) {
		return &AlreadyRunningError{Path: h.path}
	}
	if err != nil {
		return &IOError{Op: opAcquire, Serial: serial, Path: h.path, Err: err}
	}

	if err := writeSerial(f, serial); err != nil {
		if rmErr := removeIfEmpty(h.path); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		release(f)
		return &IOError{Op: opAcquire, Serial: serial, Path: h.path, Err: err}
	}

	h.file = f
	h.serial = serial
	h.logger.Debug("lock acquired",
		logging.String(logging.FieldEventType, "lock_acquired"),
		logging.String(logging.FieldSerial, serial),
	)
	return nil
}

// acquire opens the store and takes a non-blocking exclusive flock on it. The
// lock only counts when the locked inode is still the one at path: a holder
// deletes an emptied store before unlocking, so a contender that opened the
// old inode reopens and tries again.
func acquire(path string) (*os.File, error) {
	for attempt := 0; attempt < acquireAttempts; attempt++ {
		f, err := os.OpenFile(path, storeFlags, 0o644)
		if err != nil {
			return nil, err
		}
		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			_ = f.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, errContended
			}
			return nil, fmt.Errorf("flock: %w", err)
		}
		current, err := isCurrent(f, path)
		if err != nil {
			release(f)
			return nil, err
		}
		if current {
			return f, nil
		}
		release(f)
	}
	return nil, errContended
}

func isCurrent(f *os.File, path string) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat locked store: %w", err)
	}
	onDisk, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat store: %w", err)
	}
	return os.SameFile(held, onDisk), nil
}

func release(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Unlock removes serial from the store and releases the lock. It is a no-op
// when the handler does not hold the lock for serial. A missing store or
// serial is logged at NOTICE and not returned; other failures are logged and
// returned as *IOError. The lock is always released on return.
func (h *Handler) Unlock(serial string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil || serial == "" || serial != h.serial {
		return nil
	}
	f := h.file
	h.file = nil
	h.serial = ""

	var (
		missingFile *FileNotFoundError
		missingLine *LineNotFoundError
	)
	remaining, err := removeLine(f, h.path, serial)
	// The emptied store is deleted before the lock is dropped.
	if remaining == 0 && !errors.As(err, &missingFile) {
		if rmErr := removeIfEmpty(h.path); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	if relErr := release(f); relErr != nil && err == nil {
		err = relErr
	}

	logger := h.logger.With(logging.String(logging.FieldSerial, serial))
	switch {
	case err == nil:
		logger.Debug("lock released", logging.String(logging.FieldEventType, "lock_released"))
		return nil
	case errors.As(err, &missingFile), errors.As(err, &missingLine):
		logging.Notice(logger, "lock store modified externally",
			logging.String(logging.FieldEventType, "lock_store_inconsistent"),
			logging.Error(err),
		)
		return nil
	default:
		ioErr := &IOError{Op: opRelease, Serial: serial, Path: h.path, Err: err}
		logger.Error("lock release failed",
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "inspect the lock file and clear it with `importer pid clear` once no import is running"),
			logging.Error(ioErr),
		)
		return ioErr
	}
}

// removeLine drops the first line equal to serial and rewrites the store in
// place. It returns the number of lines left, or -1 when the store could not
// be read or rewritten.
func removeLine(f *os.File, path, serial string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return -1, &FileNotFoundError{Path: path}
		}
		return -1, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return -1, fmt.Errorf("rewind: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return -1, fmt.Errorf("read: %w", err)
	}

	lines := splitLines(data)
	kept := make([]string, 0, len(lines))
	found := false
	for _, line := range lines {
		if !found && line == serial {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return len(lines), &LineNotFoundError{Serial: serial, Path: path}
	}

	if err := f.Truncate(0); err != nil {
		return -1, fmt.Errorf("truncate: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return -1, fmt.Errorf("rewind: %w", err)
	}
	if len(kept) > 0 {
		var buf bytes.Buffer
		for _, line := range kept {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			return -1, fmt.Errorf("rewrite: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return -1, fmt.Errorf("sync: %w", err)
	}
	return len(kept), nil
}

func removeIfEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() || info.Size() > 0 {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines
}
