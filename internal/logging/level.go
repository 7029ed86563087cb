package logging

import (
	"context"
	"log/slog"
	"strings"
)

// LevelNotice sits between info and warn. It marks conditions worth an
// operator's attention that do not affect the outcome of a run, such as an
// externally modified lock store.
const LevelNotice = slog.LevelInfo + 2

// Notice logs msg at LevelNotice.
func Notice(logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), LevelNotice, msg, attrs...)
}

// ParseLevel converts a configured level name into a slog level. Unknown
// names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "notice":
		return LevelNotice
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical", "alert", "emergency":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= LevelNotice:
		return "NOTICE"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
