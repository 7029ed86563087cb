package logging

import (
	"fmt"
	"log/slog"
	"sync"
)

// SystemLoggerName is the key of the default system logger.
const SystemLoggerName = "system"

// Registry holds the named system loggers of an import run. The system logger
// is always present; further loggers (e.g. a dedicated error log) are optional.
type Registry struct {
	mu      sync.RWMutex
	loggers map[string]*slog.Logger
	order   []string
}

// NewRegistry creates a registry whose system logger is system. A nil logger is
// replaced with a no-op logger.
func NewRegistry(system *slog.Logger) *Registry {
	if system == nil {
		system = NewNop()
	}
	return &Registry{
		loggers: map[string]*slog.Logger{SystemLoggerName: system},
		order:   []string{SystemLoggerName},
	}
}

// Add registers logger under name, replacing an existing entry. Nil loggers are ignored.
func (r *Registry) Add(name string, logger *slog.Logger) {
	if r == nil || logger == nil || name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.loggers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.loggers[name] = logger
}

// Get returns the logger registered under name.
func (r *Registry) Get(name string) (*slog.Logger, error) {
	if r == nil {
		return nil, fmt.Errorf("the requested logger %q is not available", name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	logger, ok := r.loggers[name]
	if !ok {
		return nil, fmt.Errorf("the requested logger %q is not available", name)
	}
	return logger, nil
}

// Has reports whether a logger is registered under name.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loggers[name]
	return ok
}

// System returns the default system logger.
func (r *Registry) System() *slog.Logger {
	if r == nil {
		return NewNop()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loggers[SystemLoggerName]
}

// All returns the registered loggers in registration order.
func (r *Registry) All() []*slog.Logger {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*slog.Logger, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.loggers[name])
	}
	return out
}

// Fanout returns a logger that writes every record to all registered loggers.
func (r *Registry) Fanout() *slog.Logger {
	loggers := r.All()
	handlers := make([]slog.Handler, 0, len(loggers))
	for _, logger := range loggers {
		handlers = append(handlers, logger.Handler())
	}
	return slog.New(TeeHandler(handlers...))
}
