package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSerial is the standardized structured logging key for import run serials.
	FieldSerial = "serial"
	// FieldModule is the standardized structured logging key for processing module names.
	FieldModule = "module"
	// FieldEventType classifies a log line for filtering (e.g. "lock_acquired").
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPidFile is the standardized structured logging key for lock store paths.
	FieldPidFile = "pid_file"
	// FieldOutcome is the standardized structured logging key for run outcomes.
	FieldOutcome = "outcome"
	// FieldExitCode is the standardized structured logging key for process exit codes.
	FieldExitCode = "exit_code"
)

type serialKey struct{}

// WithSerial stores the import serial on the context so loggers derived through
// WithContext tag every line with it.
func WithSerial(ctx context.Context, serial string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return ctx
	}
	return context.WithValue(ctx, serialKey{}, serial)
}

// SerialFromContext returns the import serial stored on ctx.
func SerialFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	serial, ok := ctx.Value(serialKey{}).(string)
	return serial, ok && serial != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if serial, ok := SerialFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSerial, serial))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
