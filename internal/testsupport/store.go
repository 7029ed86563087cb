package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/techdivision/import-app-simple/internal/config"
	"github.com/techdivision/import-app-simple/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// RecordRun inserts a finished run for tests.
func RecordRun(t testing.TB, st *store.Store, serial, outcome string, exitCode int, started time.Time) {
	t.Helper()

	ctx := context.Background()
	if err := st.RecordStart(ctx, serial, started); err != nil {
		t.Fatalf("store.RecordStart: %v", err)
	}
	if err := st.RecordFinish(ctx, serial, outcome, exitCode, "", started.Add(time.Second)); err != nil {
		t.Fatalf("store.RecordFinish: %v", err)
	}
}
