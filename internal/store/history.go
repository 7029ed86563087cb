package store

import (
	"context"
	"log/slog"

	"github.com/techdivision/import-app-simple/internal/events"
	"github.com/techdivision/import-app-simple/internal/logging"
)

// HistoryRecorder writes the start and outcome of every import run into the
// import_runs table.
type HistoryRecorder struct {
	store  *Store
	logger *slog.Logger
}

// NewHistoryRecorder returns a recorder persisting into store.
func NewHistoryRecorder(store *Store, logger *slog.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		store:  store,
		logger: logging.NewComponentLogger(logger, "history"),
	}
}

// Attach subscribes the recorder to bus and returns a function detaching it.
func (r *HistoryRecorder) Attach(bus *events.Bus) (detach func()) {
	unsubscribers := []func(){
		bus.Subscribe(events.TransactionStart, r.Handle),
		bus.Subscribe(events.TransactionSuccess, r.Handle),
		bus.Subscribe(events.TransactionFailure, r.Handle),
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

// Handle records payload. Events other than transaction start, success and
// failure are ignored.
func (r *HistoryRecorder) Handle(ctx context.Context, payload events.Payload) error {
	switch payload.Event {
	case events.TransactionStart:
		return r.store.RecordStart(ctx, payload.Serial, payload.At)
	case events.TransactionSuccess, events.TransactionFailure:
		var message string
		if payload.Err != nil {
			message = payload.Err.Error()
		}
		if err := r.store.RecordFinish(ctx, payload.Serial, payload.Outcome, payload.ExitCode, message, payload.At); err != nil {
			return err
		}
		r.logger.Debug("run recorded",
			logging.String(logging.FieldSerial, payload.Serial),
			logging.String(logging.FieldOutcome, payload.Outcome),
		)
		return nil
	default:
		return nil
	}
}
