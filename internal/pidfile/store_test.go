package pidfile_test

import (
	"errors"
	"testing"

	"github.com/techdivision/import-app-simple/internal/pidfile"
)

func TestReadSerials(t *testing.T) {
	path := storePath(t)
	serials, err := pidfile.ReadSerials(path)
	if err != nil || serials != nil {
		t.Fatalf("missing store: got %v, %v", serials, err)
	}

	appendLine(t, path, "a")
	appendLine(t, path, "")
	appendLine(t, path, "b")
	serials, err = pidfile.ReadSerials(path)
	if err != nil {
		t.Fatalf("ReadSerials: %v", err)
	}
	if len(serials) != 2 || serials[0] != "a" || serials[1] != "b" {
		t.Fatalf("unexpected serials %v", serials)
	}
}

func TestLockedAndRemove(t *testing.T) {
	path := storePath(t)
	if locked, err := pidfile.Locked(path); err != nil || locked {
		t.Fatalf("missing store: locked=%v err=%v", locked, err)
	}

	h := pidfile.New(path, nil)
	if err := h.Lock("x"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked, err := pidfile.Locked(path); err != nil || !locked {
		t.Fatalf("held store: locked=%v err=%v", locked, err)
	}
	if err := pidfile.Remove(path); !errors.Is(err, pidfile.ErrAlreadyRunning) {
		t.Fatalf("expected Remove to refuse a held store, got %v", err)
	}
	if err := h.Unlock("x"); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	appendLine(t, path, "stale")
	if locked, err := pidfile.Locked(path); err != nil || locked {
		t.Fatalf("stale store: locked=%v err=%v", locked, err)
	}
	if err := pidfile.Remove(path); err != nil {
		t.Fatalf("Remove stale store: %v", err)
	}
	assertMissing(t, path)
	if err := pidfile.Remove(path); err != nil {
		t.Fatalf("Remove missing store: %v", err)
	}
}
