package notifications

import (
	"context"
	"log/slog"

	"github.com/techdivision/import-app-simple/internal/events"
	"github.com/techdivision/import-app-simple/internal/logging"
)

// Attach subscribes svc to the end of every import run on bus. Failed runs are
// always reported; successful ones only when onSuccess is set. Delivery errors
// are logged at debug level and never fail the run.
func Attach(bus *events.Bus, svc Service, onSuccess bool, logger *slog.Logger) (detach func()) {
	logger = logging.NewComponentLogger(logger, "notifications")
	return bus.Subscribe(events.TransactionFinished, func(ctx context.Context, p events.Payload) error {
		var err error
		switch {
		case p.Success && !onSuccess:
			return nil
		case p.Success:
			err = svc.NotifyImportCompleted(ctx, p.Serial, p.Outcome, p.Duration)
		default:
			err = svc.NotifyImportFailed(ctx, p.Serial, p.Outcome, p.Err)
		}
		if err != nil {
			logger.Debug("import notification failed",
				logging.String(logging.FieldSerial, p.Serial),
				logging.Error(err),
			)
		}
		return nil
	})
}
