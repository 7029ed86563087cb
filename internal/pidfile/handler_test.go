package pidfile_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/techdivision/import-app-simple/internal/logging"
	"github.com/techdivision/import-app-simple/internal/pidfile"
)

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) levels() []slog.Level {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]slog.Level, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, r.Level)
	}
	return out
}

func (h *recordingHandler) has(level slog.Level) bool {
	for _, l := range h.levels() {
		if l == level {
			return true
		}
	}
	return false
}

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "importer.pid")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock store: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open lock store: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatalf("append line: %v", err)
	}
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be deleted, stat err=%v", path, err)
	}
}

func TestLockIsExclusive(t *testing.T) {
	path := storePath(t)
	first := pidfile.New(path, nil)
	second := pidfile.New(path, nil)

	if err := first.Lock("a"); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	err := second.Lock("b")
	if !errors.Is(err, pidfile.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	var running *pidfile.AlreadyRunningError
	if !errors.As(err, &running) || running.Path != path {
		t.Fatalf("expected AlreadyRunningError for %s, got %#v", path, err)
	}
	if !strings.Contains(err.Error(), "is already in use") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if second.Held() {
		t.Fatal("losing handler must not report the lock as held")
	}
	if got := readLines(t, path); len(got) != 1 || got[0] != "a" {
		t.Fatalf("losing handler must not write its serial, got %v", got)
	}

	if err := first.Unlock("a"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := second.Lock("b"); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	if err := second.Unlock("b"); err != nil {
		t.Fatalf("unlock second: %v", err)
	}
}

func TestConcurrentLockHasSingleWinner(t *testing.T) {
	path := storePath(t)
	const contenders = 8

	handlers := make([]*pidfile.Handler, contenders)
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		handlers[i] = pidfile.New(path, nil)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = handlers[i].Lock(string(rune('a' + i)))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
			defer func(i int) { _ = handlers[i].Unlock(string(rune('a' + i))) }(i)
		case !errors.Is(err, pidfile.ErrAlreadyRunning):
			t.Fatalf("contender %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestLockSameSerialTwiceIsNoop(t *testing.T) {
	path := storePath(t)
	h := pidfile.New(path, nil)
	if err := h.Lock("x"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := h.Lock("x"); err != nil {
		t.Fatalf("second lock: %v", err)
	}
	if got := readLines(t, path); len(got) != 1 {
		t.Fatalf("expected one line, got %v", got)
	}
	if err := h.Lock("y"); err == nil {
		t.Fatal("expected error when locking a different serial on a held handler")
	}
	if err := h.Unlock("x"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}

func TestLockRejectsInvalidSerial(t *testing.T) {
	h := pidfile.New(storePath(t), nil)
	for _, serial := range []string{"", "   ", "a\nb", " x", "x\t"} {
		if err := h.Lock(serial); err == nil {
			t.Fatalf("expected error for serial %q", serial)
		}
	}
	if h.Held() {
		t.Fatal("handler must not hold the lock after rejected serials")
	}
}

func TestLockReportsUnwritableStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "importer.pid")
	err := pidfile.New(path, nil).Lock("x")
	var ioErr *pidfile.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if errors.Is(err, pidfile.ErrAlreadyRunning) {
		t.Fatal("I/O failures must not look like contention")
	}
	if !strings.Contains(err.Error(), "x") || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected serial and path in %q", err.Error())
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("failed acquire must not leave a store behind, stat: %v", statErr)
	}
}

func TestLockHoldersNeverOverlap(t *testing.T) {
	path := storePath(t)
	const (
		contenders = 6
		rounds     = 200
	)

	var (
		active   atomic.Int32
		peak     atomic.Int32
		acquired atomic.Int32
		wg       sync.WaitGroup
	)
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := pidfile.New(path, nil)
			for round := 0; round < rounds; round++ {
				serial := fmt.Sprintf("c%d-%d", i, round)
				err := h.Lock(serial)
				if errors.Is(err, pidfile.ErrAlreadyRunning) {
					continue
				}
				if err != nil {
					errs <- err
					return
				}
				acquired.Add(1)
				now := active.Add(1)
				for {
					prev := peak.Load()
					if now <= prev || peak.CompareAndSwap(prev, now) {
						break
					}
				}
				time.Sleep(50 * time.Microsecond)
				active.Add(-1)
				if err := h.Unlock(serial); err != nil {
					errs <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("contender failed: %v", err)
	}
	if acquired.Load() == 0 {
		t.Fatal("expected at least one acquisition")
	}
	if got := peak.Load(); got != 1 {
		t.Fatalf("expected at most one holder at a time, saw %d", got)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected store to be deleted after the last release, stat: %v", err)
	}
}

func TestUnlockTwiceIsNoop(t *testing.T) {
	path := storePath(t)
	h := pidfile.New(path, nil)
	if err := h.Lock("s"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := h.Unlock("s"); err != nil {
		t.Fatalf("first unlock: %v", err)
	}
	if err := h.Unlock("s"); err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if h.Held() || h.Serial() != "" {
		t.Fatal("handler must be released")
	}
}

func TestUnlockWithoutLockIsNoop(t *testing.T) {
	path := storePath(t)
	appendLine(t, path, "foreign")
	h := pidfile.New(path, nil)
	if err := h.Unlock("foreign"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if got := readLines(t, path); len(got) != 1 || got[0] != "foreign" {
		t.Fatalf("store must be untouched, got %v", got)
	}
}

func TestUnlockRemovesOnlyItsLine(t *testing.T) {
	path := storePath(t)
	appendLine(t, path, "a")

	h := pidfile.New(path, nil)
	if err := h.Lock("b"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	appendLine(t, path, "c")

	if err := h.Unlock("b"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	got := readLines(t, path)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("expected [a c], got %v", got)
	}
}

func TestUnlockDeletesEmptyStore(t *testing.T) {
	path := storePath(t)
	h := pidfile.New(path, nil)
	if err := h.Lock("only"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := h.Unlock("only"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	assertMissing(t, path)
}

func TestRoundTripRestoresStore(t *testing.T) {
	cases := []struct {
		name     string
		existing []string
	}{
		{name: "absent store"},
		{name: "store with stale serial", existing: []string{"stale"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := storePath(t)
			for _, line := range tc.existing {
				appendLine(t, path, line)
			}
			h := pidfile.New(path, nil)
			if err := h.Lock("run"); err != nil {
				t.Fatalf("lock: %v", err)
			}
			if err := h.Unlock("run"); err != nil {
				t.Fatalf("unlock: %v", err)
			}
			if len(tc.existing) == 0 {
				assertMissing(t, path)
				return
			}
			got := readLines(t, path)
			if strings.Join(got, ",") != strings.Join(tc.existing, ",") {
				t.Fatalf("expected %v, got %v", tc.existing, got)
			}
		})
	}
}

func TestUnlockMissingStoreLogsNotice(t *testing.T) {
	path := storePath(t)
	rec := &recordingHandler{}
	h := pidfile.New(path, slog.New(rec))
	if err := h.Lock("x"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove store: %v", err)
	}

	if err := h.Unlock("x"); err != nil {
		t.Fatalf("unlock must tolerate a missing store, got %v", err)
	}
	if !rec.has(logging.LevelNotice) {
		t.Fatalf("expected a NOTICE record, got levels %v", rec.levels())
	}
	if h.Held() {
		t.Fatal("lock must be released")
	}
	assertMissing(t, path)
}

func TestUnlockMissingSerialLogsNotice(t *testing.T) {
	path := storePath(t)
	rec := &recordingHandler{}
	h := pidfile.New(path, slog.New(rec))
	if err := h.Lock("x"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := os.WriteFile(path, []byte("y\n"), 0o644); err != nil {
		t.Fatalf("rewrite store: %v", err)
	}

	if err := h.Unlock("x"); err != nil {
		t.Fatalf("unlock must tolerate a missing serial, got %v", err)
	}
	if !rec.has(logging.LevelNotice) {
		t.Fatalf("expected a NOTICE record, got levels %v", rec.levels())
	}
	if got := readLines(t, path); len(got) != 1 || got[0] != "y" {
		t.Fatalf("foreign lines must survive, got %v", got)
	}
	if rec.has(slog.LevelError) {
		t.Fatal("store inconsistencies must not be logged as errors")
	}
}

func TestErrorTypesMatchSentinels(t *testing.T) {
	lineErr := &pidfile.LineNotFoundError{Serial: "a", Path: "/tmp/x"}
	if !errors.Is(lineErr, pidfile.ErrLineNotFound) {
		t.Fatal("LineNotFoundError should match ErrLineNotFound")
	}
	fileErr := &pidfile.FileNotFoundError{Path: "/tmp/x"}
	if !errors.Is(fileErr, os.ErrNotExist) {
		t.Fatal("FileNotFoundError should match os.ErrNotExist")
	}
	ioErr := &pidfile.IOError{Op: "release", Serial: "a", Path: "/tmp/x", Err: os.ErrPermission}
	if !errors.Is(ioErr, os.ErrPermission) {
		t.Fatal("IOError should unwrap its cause")
	}
	if !strings.Contains(ioErr.Error(), "can't remove serial a") {
		t.Fatalf("unexpected release message %q", ioErr.Error())
	}
}
