package app_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/techdivision/import-app-simple/internal/app"
	"github.com/techdivision/import-app-simple/internal/events"
	"github.com/techdivision/import-app-simple/internal/logging"
	"github.com/techdivision/import-app-simple/internal/module"
	"github.com/techdivision/import-app-simple/internal/pidfile"
	"github.com/techdivision/import-app-simple/internal/testsupport"
)

type fakeConn struct {
	calls       []string
	commitErr   error
	commitPanic bool
}

func (c *fakeConn) BeginTransaction(context.Context) error {
	c.calls = append(c.calls, "begin")
	return nil
}

func (c *fakeConn) Commit() error {
	c.calls = append(c.calls, "commit")
	if c.commitPanic {
		panic("commit exploded")
	}
	return c.commitErr
}

func (c *fakeConn) Rollback() error {
	c.calls = append(c.calls, "rollback")
	return nil
}

type moduleFunc func(ctx context.Context, rt module.Runtime) error

func (f moduleFunc) Process(ctx context.Context, rt module.Runtime) error { return f(ctx, rt) }

type harness struct {
	path    string
	handler *pidfile.Handler
	conn    *fakeConn
	events  []string
	ran     []string
	errLog  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		path:   filepath.Join(t.TempDir(), "importer.pid"),
		conn:   &fakeConn{},
		errLog: &bytes.Buffer{},
	}
}

func (h *harness) track(name string, body func(rt module.Runtime) error) module.Instance {
	return module.Instance{Name: name, Type: "test", Module: moduleFunc(func(_ context.Context, rt module.Runtime) error {
		h.ran = append(h.ran, name)
		if body == nil {
			return nil
		}
		return body(rt)
	})}
}

func (h *harness) build(t *testing.T, modules ...module.Instance) *app.Simple {
	t.Helper()
	h.handler = pidfile.New(h.path, nil)

	registry := logging.NewRegistry(logging.NewNop())
	registry.Add("error", slog.New(slog.NewTextHandler(h.errLog, &slog.HandlerOptions{Level: slog.LevelError})))

	bus := events.NewBus()
	bus.SubscribeAll(func(_ context.Context, p events.Payload) error {
		h.events = append(h.events, p.Event.String())
		return nil
	})

	a, err := app.New(app.Options{
		Loggers:           registry,
		Locker:            h.handler,
		Conn:              h.conn,
		Bus:               bus,
		Modules:           modules,
		SingleTransaction: true,
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return a
}

func assertSequence(t *testing.T, label string, got, want []string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("%s: got %v, want %v", label, got, want)
	}
}

func TestProcessSuccess(t *testing.T) {
	h := newHarness(t)
	var lockedDuringRun []string
	a := h.build(t,
		h.track("first", func(rt module.Runtime) error {
			lockedDuringRun = testsupport.ReadLines(t, h.path)
			return rt.Lock()
		}),
		h.track("second", nil),
	)

	result := a.Process(context.Background(), "serial-1")

	if result.Outcome != app.OutcomeSuccess || result.ExitCode != 0 || result.Err != nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Serial != "serial-1" || result.Duration <= 0 {
		t.Fatalf("unexpected serial or duration: %+v", result)
	}
	assertSequence(t, "modules", h.ran, []string{"first", "second"})
	assertSequence(t, "lock store during run", lockedDuringRun, []string{"serial-1"})
	assertSequence(t, "events", h.events, []string{
		"transaction-start", "setup", "teardown", "transaction-success", "transaction-finished",
	})
	assertSequence(t, "connection", h.conn.calls, []string{"begin", "commit"})
	if _, err := os.Stat(h.path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected lock store to be removed, stat err=%v", err)
	}
	if h.handler.Held() {
		t.Fatal("lock must be released")
	}
}

func TestProcessGeneratesSerial(t *testing.T) {
	h := newHarness(t)
	var seen string
	a := h.build(t, h.track("capture", func(rt module.Runtime) error {
		seen = rt.Serial()
		return nil
	}))

	result := a.Process(context.Background(), "  ")
	if _, err := uuid.Parse(result.Serial); err != nil {
		t.Fatalf("expected generated uuid serial, got %q", result.Serial)
	}
	if seen != result.Serial {
		t.Fatalf("module saw serial %q, result has %q", seen, result.Serial)
	}
}

func TestProcessFinishSkipsRemainingModulesAndCommits(t *testing.T) {
	h := newHarness(t)
	a := h.build(t,
		h.track("gate", func(rt module.Runtime) error {
			rt.Finish("nothing to do")
			return nil
		}),
		h.track("skipped", nil),
	)

	result := a.Process(context.Background(), "s")
	if result.Outcome != app.OutcomeFinished || result.ExitCode != 0 || result.Reason != "nothing to do" {
		t.Fatalf("unexpected result %+v", result)
	}
	assertSequence(t, "modules", h.ran, []string{"gate"})
	assertSequence(t, "connection", h.conn.calls, []string{"begin", "commit"})
	if h.events[3] != "transaction-success" {
		t.Fatalf("expected transaction-success, got %v", h.events)
	}
}

func TestFinishLogsReasonAtNotice(t *testing.T) {
	var buf bytes.Buffer
	gate := moduleFunc(func(_ context.Context, rt module.Runtime) error {
		rt.Finish("nothing to do")
		return nil
	})
	a, err := app.New(app.Options{
		Logger:  slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: logging.LevelNotice})),
		Locker:  pidfile.New(filepath.Join(t.TempDir(), "importer.pid"), nil),
		Modules: []module.Instance{{Name: "gate", Type: "test", Module: gate}},
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	a.Process(context.Background(), "s")

	line := ""
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "event_type=import_finished_early") {
			line = l
		}
	}
	if !strings.Contains(line, "level=INFO+2") || !strings.Contains(line, `msg="nothing to do"`) {
		t.Fatalf("expected finish reason at NOTICE, got %q", buf.String())
	}
}

func TestProcessStopUsesCallerCode(t *testing.T) {
	cases := []struct {
		name string
		code int
		want int
	}{
		{"explicit code", 3, 3},
		{"zero code", 0, 1},
		{"negative code", -2, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			a := h.build(t,
				h.track("stopper", func(rt module.Runtime) error {
					rt.Stop("operator requested stop", tc.code)
					return nil
				}),
				h.track("skipped", nil),
			)

			result := a.Process(context.Background(), "s")
			if result.Outcome != app.OutcomeStopped || result.ExitCode != tc.want {
				t.Fatalf("unexpected result %+v", result)
			}
			assertSequence(t, "modules", h.ran, []string{"stopper"})
			assertSequence(t, "connection", h.conn.calls, []string{"begin", "rollback"})
			if h.events[3] != "transaction-failure" {
				t.Fatalf("expected transaction-failure, got %v", h.events)
			}
		})
	}
}

func TestProcessAlreadyRunning(t *testing.T) {
	h := newHarness(t)
	other := pidfile.New(h.path, nil)
	if err := other.Lock("other"); err != nil {
		t.Fatalf("lock other: %v", err)
	}
	defer other.Unlock("other")

	a := h.build(t, h.track("never", nil))
	result := a.Process(context.Background(), "mine")

	if result.Outcome != app.OutcomeAlreadyRunning || result.ExitCode != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !errors.Is(result.Err, pidfile.ErrAlreadyRunning) || !strings.Contains(result.Err.Error(), "already in use") {
		t.Fatalf("expected already-running error, got %v", result.Err)
	}
	if len(h.ran) != 0 {
		t.Fatalf("no module may run, got %v", h.ran)
	}
	assertSequence(t, "connection", h.conn.calls, []string{"begin", "rollback"})
	assertSequence(t, "lock store", testsupport.ReadLines(t, h.path), []string{"other"})
	if h.errLog.Len() != 0 {
		t.Fatalf("contention must not be logged as an error: %q", h.errLog.String())
	}
}

func TestProcessFailureRollsBackAndLogsToSystemLoggers(t *testing.T) {
	h := newHarness(t)
	cause := errors.New("csv broken")
	a := h.build(t,
		h.track("broken", func(module.Runtime) error { return cause }),
		h.track("skipped", nil),
	)

	result := a.Process(context.Background(), "s")
	if result.Outcome != app.OutcomeFailure || result.ExitCode != 1 || !errors.Is(result.Err, cause) {
		t.Fatalf("unexpected result %+v", result)
	}
	assertSequence(t, "modules", h.ran, []string{"broken"})
	assertSequence(t, "connection", h.conn.calls, []string{"begin", "rollback"})
	assertSequence(t, "events", h.events, []string{
		"transaction-start", "setup", "teardown", "transaction-failure", "transaction-finished",
	})
	if !strings.Contains(h.errLog.String(), "csv broken") || !strings.Contains(h.errLog.String(), "serial=s") {
		t.Fatalf("expected failure in error log, got %q", h.errLog.String())
	}
	if _, err := os.Stat(h.path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected lock store to be removed after failure, stat err=%v", err)
	}
}

func TestProcessPanicIsGuarded(t *testing.T) {
	h := newHarness(t)
	a := h.build(t, h.track("explodes", func(module.Runtime) error { panic("index out of range") }))

	result := a.Process(context.Background(), "x")

	var fatal *pidfile.FatalError
	if !errors.As(result.Err, &fatal) {
		t.Fatalf("expected FatalError, got %v", result.Err)
	}
	if result.Outcome != app.OutcomeFailure || result.ExitCode != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(h.path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected lock store without serial x, stat err=%v", err)
	}
	assertSequence(t, "events", h.events, []string{
		"transaction-start", "setup", "teardown", "transaction-failure", "transaction-finished",
	})
	assertSequence(t, "connection", h.conn.calls, []string{"begin", "rollback"})
}

func TestProcessReleasesSerialWhenCompletionPanics(t *testing.T) {
	cases := []struct {
		name        string
		event       events.Event
		commitPanic bool
		wantConn    []string
	}{
		{name: "teardown listener", event: events.TearDown, wantConn: []string{"begin", "rollback"}},
		{name: "success listener", event: events.TransactionSuccess, wantConn: []string{"begin", "commit"}},
		{name: "commit", commitPanic: true, wantConn: []string{"begin", "commit", "rollback"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.conn.commitPanic = tc.commitPanic
			a := h.build(t, h.track("ok", nil))
			if !tc.commitPanic {
				a.Bus().Subscribe(tc.event, func(context.Context, events.Payload) error {
					panic("listener boom")
				})
			}

			result := a.Process(context.Background(), "x")

			var fatal *pidfile.FatalError
			if !errors.As(result.Err, &fatal) {
				t.Fatalf("expected FatalError, got %v", result.Err)
			}
			if result.Outcome != app.OutcomeFailure || result.ExitCode != 1 {
				t.Fatalf("unexpected result %+v", result)
			}
			serials, err := pidfile.ReadSerials(h.path)
			if err != nil || len(serials) != 0 {
				t.Fatalf("expected serial x to be released, got %v, %v", serials, err)
			}
			if h.handler.Held() {
				t.Fatal("handler must not hold the lock after a crash")
			}
			assertSequence(t, "connection", h.conn.calls, tc.wantConn)
			if h.events[len(h.events)-1] != "transaction-finished" {
				t.Fatalf("expected transaction-finished last, got %v", h.events)
			}
		})
	}
}

func TestProcessCommitFailureBecomesFailure(t *testing.T) {
	h := newHarness(t)
	h.conn.commitErr = errors.New("disk full")
	a := h.build(t, h.track("ok", nil))

	result := a.Process(context.Background(), "s")
	if result.Outcome != app.OutcomeFailure || !strings.Contains(result.Err.Error(), "disk full") {
		t.Fatalf("unexpected result %+v", result)
	}
	if h.events[3] != "transaction-failure" {
		t.Fatalf("expected transaction-failure after failed commit, got %v", h.events)
	}
}

func TestProcessHonoursCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	a := h.build(t,
		h.track("cancels", func(module.Runtime) error {
			cancel()
			return nil
		}),
		h.track("skipped", nil),
	)

	result := a.Process(ctx, "s")
	if result.Outcome != app.OutcomeFailure || !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("unexpected result %+v", result)
	}
	assertSequence(t, "modules", h.ran, []string{"cancels"})
}

func TestProcessResetsStopStateBetweenRuns(t *testing.T) {
	h := newHarness(t)
	first := true
	a := h.build(t, h.track("once", func(rt module.Runtime) error {
		if first {
			first = false
			rt.Stop("first run only", 2)
		}
		return nil
	}))

	if result := a.Process(context.Background(), "a"); result.Outcome != app.OutcomeStopped {
		t.Fatalf("first run: %+v", result)
	}
	if result := a.Process(context.Background(), "b"); result.Outcome != app.OutcomeSuccess || result.Reason != "" {
		t.Fatalf("second run: %+v", result)
	}
}

func TestListenerErrorsDoNotChangeOutcome(t *testing.T) {
	h := newHarness(t)
	a := h.build(t, h.track("ok", nil))
	a.Bus().Subscribe(events.SetUp, func(context.Context, events.Payload) error {
		return errors.New("listener broke")
	})

	if result := a.Process(context.Background(), "s"); result.Outcome != app.OutcomeSuccess {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRuntimeAccessors(t *testing.T) {
	h := newHarness(t)
	a := h.build(t)

	if _, err := a.SystemLogger("error"); err != nil {
		t.Fatalf("SystemLogger(error): %v", err)
	}
	if _, err := a.SystemLogger("audit"); err == nil {
		t.Fatal("expected unknown system logger to fail")
	}
	if a.Execer() != nil {
		t.Fatal("fake connection provides no execer")
	}
	if a.Logger() == nil {
		t.Fatal("expected a logger")
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := app.New(app.Options{}); err == nil {
		t.Fatal("expected error without locker")
	}
	locker := pidfile.New(filepath.Join(t.TempDir(), "x.pid"), nil)
	if _, err := app.New(app.Options{Locker: locker, SingleTransaction: true}); err == nil {
		t.Fatal("expected error for single-transaction mode without connection")
	}
	a, err := app.New(app.Options{Locker: locker})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if result := a.Process(context.Background(), "s"); result.Outcome != app.OutcomeSuccess {
		t.Fatalf("run without modules: %+v", result)
	}
}
