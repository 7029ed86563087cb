package importrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/techdivision/import-app-simple/internal/app"
	"github.com/techdivision/import-app-simple/internal/config"
	"github.com/techdivision/import-app-simple/internal/events"
	"github.com/techdivision/import-app-simple/internal/logging"
	"github.com/techdivision/import-app-simple/internal/module"
	"github.com/techdivision/import-app-simple/internal/notifications"
	"github.com/techdivision/import-app-simple/internal/pidfile"
	"github.com/techdivision/import-app-simple/internal/store"
)

// ErrorLoggerName is the registry key of the dedicated error log.
const ErrorLoggerName = "error"

// Options configures a single import run.
type Options struct {
	Serial string
	// SingleTransaction forces single-transaction mode on top of the config.
	SingleTransaction bool
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// Logger replaces the logger built from config.
	Logger *slog.Logger
	// Modules replaces the built-in module registry.
	Modules *module.Registry
	// Notifier replaces the notification service built from config.
	Notifier notifications.Service
}

// Run wires the collaborators of an import from cfg and processes one run.
// The returned error reports wiring failures that happened before the run
// started; the outcome of the run itself is carried by the Result.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (app.Result, error) {
	if cfg == nil {
		return app.Result{}, errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return app.Result{}, err
	}

	logger := opts.Logger
	if logger == nil {
		logCfg := *cfg
		if level := strings.TrimSpace(opts.LogLevel); level != "" {
			logCfg.Logging.Level = level
		}
		var err error
		logger, err = logging.NewFromConfig(&logCfg)
		if err != nil {
			return app.Result{}, fmt.Errorf("init logger: %w", err)
		}
	}

	loggers := logging.NewRegistry(logger)
	errorLogger, err := logging.NewErrorLogger(cfg.Logging.ErrorLog)
	if err != nil {
		return app.Result{}, fmt.Errorf("init error log: %w", err)
	}
	loggers.Add(ErrorLoggerName, errorLogger)

	registry := opts.Modules
	if registry == nil {
		registry = module.DefaultRegistry()
	}
	instances, err := registry.Build(cfg.Modules)
	if err != nil {
		logger.Error("build modules", logging.Error(err))
		return app.Result{}, err
	}

	bus := events.NewBus()
	singleTransaction := cfg.Import.SingleTransaction || opts.SingleTransaction

	var conn app.Connection
	if cfg.Paths.Database != "" {
		st, err := store.Open(cfg)
		if err != nil {
			logging.ErrorWithContext(logger, "open import database", "database_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.database and directory permissions"),
			)
			return app.Result{}, err
		}
		defer st.Close()

		conn = st.Conn()
		detach := store.NewHistoryRecorder(st, logger).Attach(bus)
		defer detach()
	} else if singleTransaction {
		return app.Result{}, errors.New("single-transaction mode requires paths.database")
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	detachNotifier := notifications.Attach(bus, notifier, cfg.Notifications.OnSuccess, logger)
	defer detachNotifier()

	simple, err := app.New(app.Options{
		Logger:            logger,
		Loggers:           loggers,
		Locker:            pidfile.New(cfg.Paths.PidFile, logger),
		Conn:              conn,
		Bus:               bus,
		Modules:           instances,
		SingleTransaction: singleTransaction,
	})
	if err != nil {
		return app.Result{}, fmt.Errorf("create importer: %w", err)
	}

	logger.Debug("import configured",
		logging.String(logging.FieldPidFile, cfg.Paths.PidFile),
		logging.Int("modules", len(instances)),
		logging.Bool("single_transaction", singleTransaction),
	)

	return simple.Process(signalCtx, opts.Serial), nil
}
