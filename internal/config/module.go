package config

import (
	"fmt"
	"strings"
)

// Module describes one processing module of an import run.
//
// Modules run in the order they appear in the configuration file. Params is
// handed to the module factory untouched; the helpers below cover the value
// shapes the built-in modules read.
type Module struct {
	Name    string         `toml:"name"`
	Type    string         `toml:"type"`
	Enabled *bool          `toml:"enabled"`
	Params  map[string]any `toml:"params"`
}

// IsEnabled reports whether the module takes part in a run. Modules are enabled unless
// explicitly disabled.
func (m Module) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// StringParam returns the trimmed string parameter stored under key.
func (m Module) StringParam(key string) string {
	value, ok := m.Params[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// StringsParam returns the string list parameter stored under key. A single
// string value is treated as a one-element list; blank entries are dropped.
func (m Module) StringsParam(key string) ([]string, error) {
	value, ok := m.Params[key]
	if !ok || value == nil {
		return nil, nil
	}
	var raw []any
	switch v := value.(type) {
	case string:
		raw = []any{v}
	case []string:
		for _, s := range v {
			raw = append(raw, s)
		}
	case []any:
		raw = v
	default:
		return nil, fmt.Errorf("module %s: param %q must be a string list, got %T", m.Name, key, value)
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("module %s: param %q contains non-string value %T", m.Name, key, entry)
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}
