package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techdivision/import-app-simple/internal/events"
	"github.com/techdivision/import-app-simple/internal/logging"
	"github.com/techdivision/import-app-simple/internal/module"
	"github.com/techdivision/import-app-simple/internal/pidfile"
	"github.com/techdivision/import-app-simple/internal/store"
)

// Locker guards a run against concurrent imports. *pidfile.Handler implements it.
type Locker interface {
	Lock(serial string) error
	Unlock(serial string) error
	Guard(errp *error)
}

// Connection is the transactional connection used in single-transaction mode.
// Connections that also provide Execer() expose their query surface to modules.
type Connection interface {
	BeginTransaction(ctx context.Context) error
	Commit() error
	Rollback() error
}

type execerProvider interface {
	Execer() store.Execer
}

// Options wires the collaborators of an import run.
type Options struct {
	Logger            *slog.Logger
	Loggers           *logging.Registry
	Locker            Locker
	Conn              Connection
	Bus               *events.Bus
	Modules           []module.Instance
	SingleTransaction bool
}

// Simple runs the configured modules as one import, guarded by the
// single-instance lock. It also serves as the module.Runtime of the run.
type Simple struct {
	logger            *slog.Logger
	loggers           *logging.Registry
	locker            Locker
	conn              Connection
	bus               *events.Bus
	modules           []module.Instance
	singleTransaction bool

	mu        sync.Mutex
	serial    string
	runLogger *slog.Logger
	stopped   bool
	finished  bool
	stopCode  int
	reason    string
}

// New validates opts and returns an orchestrator.
func New(opts Options) (*Simple, error) {
	if opts.Locker == nil {
		return nil, errors.New("app: locker is required")
	}
	if opts.SingleTransaction && opts.Conn == nil {
		return nil, errors.New("app: single-transaction mode requires a connection")
	}
	loggers := opts.Loggers
	if loggers == nil {
		loggers = logging.NewRegistry(opts.Logger)
	}
	logger := opts.Logger
	if logger == nil {
		logger = loggers.System()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	return &Simple{
		logger:            logging.NewComponentLogger(logger, "importer"),
		loggers:           loggers,
		locker:            opts.Locker,
		conn:              opts.Conn,
		bus:               bus,
		modules:           append([]module.Instance(nil), opts.Modules...),
		singleTransaction: opts.SingleTransaction,
	}, nil
}

// Bus returns the lifecycle event bus of the orchestrator.
func (a *Simple) Bus() *events.Bus {
	return a.bus
}

// Process runs one import identified by serial. An empty serial is replaced by
// a generated UUID. The returned Result carries the outcome and exit code.
func (a *Simple) Process(ctx context.Context, serial string) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	serial = strings.TrimSpace(serial)
	if serial == "" {
		serial = uuid.NewString()
	}
	started := time.Now()

	ctx = logging.WithSerial(ctx, serial)
	logger := logging.WithContext(ctx, a.logger)
	a.reset(serial, logger)

	a.publish(ctx, logger, events.Payload{Event: events.TransactionStart, Serial: serial})

	result := a.settle(ctx, logger, serial)

	result.Duration = time.Since(started)
	a.logCompletion(ctx, logger, result)

	a.publish(ctx, logger, events.Payload{
		Event:    events.TransactionFinished,
		Serial:   serial,
		Outcome:  result.Outcome.String(),
		Success:  result.Outcome.Commit(),
		ExitCode: result.ExitCode,
		Err:      result.Err,
		Duration: result.Duration,
	})
	return result
}

// settle covers everything from opening the transaction to releasing the
// serial. A panic anywhere in it, including teardown, commit and completion
// listeners, releases the serial and ends the run as a failure.
func (a *Simple) settle(ctx context.Context, logger *slog.Logger, serial string) (result Result) {
	var (
		crash     error
		txPending bool
	)
	defer func() {
		if crash == nil {
			return
		}
		if txPending {
			a.rollbackQuietly()
		}
		result = Result{Serial: serial, Outcome: OutcomeFailure, ExitCode: OutcomeFailure.ExitCode(0), Err: crash}
	}()
	defer a.locker.Guard(&crash)

	var err error
	if a.singleTransaction {
		if err = a.conn.BeginTransaction(ctx); err != nil {
			err = fmt.Errorf("begin transaction: %w", err)
		} else {
			txPending = true
		}
	}
	if err == nil {
		err = a.execute(ctx, logger, serial)
	}

	result = a.classify(serial, err)
	if txPending {
		commitErr := a.endTransaction(result.Outcome)
		txPending = false
		if commitErr != nil {
			result = Result{Serial: serial, Outcome: OutcomeFailure, ExitCode: OutcomeFailure.ExitCode(0), Err: commitErr}
		}
	}

	completion := events.TransactionSuccess
	if !result.Outcome.Commit() {
		completion = events.TransactionFailure
	}
	a.publish(ctx, logger, events.Payload{
		Event:    completion,
		Serial:   serial,
		Outcome:  result.Outcome.String(),
		Success:  result.Outcome.Commit(),
		ExitCode: result.ExitCode,
		Err:      result.Err,
	})

	// Unlock logs its own failures; they never change the outcome.
	_ = a.locker.Unlock(serial)
	return result
}

// execute runs setup, the lock, the modules and teardown. Module panics are
// turned into a *pidfile.FatalError here so the transaction still rolls back.
func (a *Simple) execute(ctx context.Context, logger *slog.Logger, serial string) (err error) {
	defer a.publish(ctx, logger, events.Payload{Event: events.TearDown, Serial: serial})
	defer a.locker.Guard(&err)

	a.publish(ctx, logger, events.Payload{Event: events.SetUp, Serial: serial})

	if err := a.locker.Lock(serial); err != nil {
		return err
	}

	for _, inst := range a.modules {
		if a.IsStopped() {
			break
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("import cancelled: %w", err)
		}
		if err := module.Run(ctx, logger, inst, a); err != nil {
			return err
		}
	}
	return nil
}

func (a *Simple) classify(serial string, err error) Result {
	a.mu.Lock()
	stopped, finished, stopCode, reason := a.stopped, a.finished, a.stopCode, a.reason
	a.mu.Unlock()

	var outcome Outcome
	switch {
	case errors.Is(err, pidfile.ErrAlreadyRunning):
		outcome = OutcomeAlreadyRunning
	case err != nil:
		outcome = OutcomeFailure
	case finished:
		outcome = OutcomeFinished
	case stopped:
		outcome = OutcomeStopped
	default:
		outcome = OutcomeSuccess
	}
	return Result{
		Serial:   serial,
		Outcome:  outcome,
		ExitCode: outcome.ExitCode(stopCode),
		Reason:   reason,
		Err:      err,
	}
}

func (a *Simple) endTransaction(outcome Outcome) error {
	if outcome.Commit() {
		if err := a.conn.Commit(); err != nil {
			_ = a.conn.Rollback()
			return fmt.Errorf("commit import: %w", err)
		}
		return nil
	}
	if err := a.conn.Rollback(); err != nil {
		a.logger.Error("rollback failed",
			logging.String(logging.FieldEventType, "rollback_failed"),
			logging.Error(err),
		)
	}
	return nil
}

func (a *Simple) rollbackQuietly() {
	defer func() {
		_ = recover()
	}()
	if err := a.conn.Rollback(); err != nil {
		a.logger.Error("rollback after fatal error failed",
			logging.String(logging.FieldEventType, "rollback_failed"),
			logging.Error(err),
		)
	}
}

func (a *Simple) logCompletion(ctx context.Context, logger *slog.Logger, result Result) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "import_complete"),
		logging.String(logging.FieldOutcome, result.Outcome.String()),
		logging.Int(logging.FieldExitCode, result.ExitCode),
		logging.Duration("duration", result.Duration),
	}
	if result.Reason != "" {
		attrs = append(attrs, logging.String("reason", result.Reason))
	}
	seconds := result.Duration.Seconds()

	switch result.Outcome {
	case OutcomeSuccess, OutcomeFinished, OutcomeStopped:
		msg := fmt.Sprintf("Successfully finished import with serial %s in %f s", result.Serial, seconds)
		if result.Outcome == OutcomeStopped {
			msg = fmt.Sprintf("Stopped import with serial %s in %f s", result.Serial, seconds)
		}
		logger.LogAttrs(ctx, result.Outcome.Level(), msg, attrs...)
	case OutcomeAlreadyRunning:
		attrs = append(attrs,
			logging.String(logging.FieldErrorHint, "wait for the running import to finish or check `importer pid show`"),
			logging.Error(result.Err),
		)
		logger.LogAttrs(ctx, result.Outcome.Level(),
			fmt.Sprintf("Can't finish import with serial %s because another import process is running (%f s)", result.Serial, seconds),
			attrs...)
	default:
		failure := logging.WithContext(ctx, a.loggers.Fanout())
		failure.LogAttrs(ctx, slog.LevelError, "import failed", append(attrs, logging.Error(result.Err))...)
		logger.Info(fmt.Sprintf("Can't finish import with serial %s in %f s", result.Serial, seconds))
	}
}

func (a *Simple) publish(ctx context.Context, logger *slog.Logger, payload events.Payload) {
	if err := a.bus.Publish(ctx, payload); err != nil {
		logger.Warn("event listener failed",
			logging.String(logging.FieldEventType, "listener_failed"),
			logging.String("event", payload.Event.String()),
			logging.String(logging.FieldImpact, "the import continues; the listener's side effect may be missing"),
			logging.Error(err),
		)
	}
}

func (a *Simple) reset(serial string, logger *slog.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.serial = serial
	a.runLogger = logger
	a.stopped = false
	a.finished = false
	a.stopCode = 0
	a.reason = ""
}
