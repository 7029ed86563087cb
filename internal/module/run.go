package module

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/techdivision/import-app-simple/internal/logging"
)

// Run executes one module instance and logs its start, completion or failure.
func Run(ctx context.Context, logger *slog.Logger, inst Instance, rt Runtime) error {
	if inst.Module == nil {
		return fmt.Errorf("module %s: not built", inst.Name)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	moduleLogger := logger.With(
		logging.String(logging.FieldModule, inst.Name),
		logging.String("module_type", inst.Type),
	)

	moduleLogger.Info("module started", logging.String(logging.FieldEventType, "module_start"))
	started := time.Now()

	if err := inst.Module.Process(ctx, rt); err != nil {
		moduleLogger.Error("module failed",
			logging.String(logging.FieldEventType, "module_failure"),
			logging.Duration("duration", time.Since(started)),
			logging.Error(err),
		)
		return fmt.Errorf("module %s: %w", inst.Name, err)
	}

	moduleLogger.Info("module completed",
		logging.String(logging.FieldEventType, "module_complete"),
		logging.Duration("duration", time.Since(started)),
		logging.Bool("stopped", rt.IsStopped()),
	)
	return nil
}

// CheckAll runs HealthCheck on every instance that implements HealthChecker.
// Other instances are reported healthy.
func CheckAll(ctx context.Context, instances []Instance) []Health {
	results := make([]Health, 0, len(instances))
	for _, inst := range instances {
		checker, ok := inst.Module.(HealthChecker)
		if !ok {
			results = append(results, Healthy(inst.Name))
			continue
		}
		health := checker.HealthCheck(ctx)
		if health.Name == "" {
			health.Name = inst.Name
		}
		results = append(results, health)
	}
	return results
}
