package module

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/techdivision/import-app-simple/internal/config"
)

// Factory builds a module from its configuration.
type Factory func(def config.Module) (Module, error)

// Registry maps module type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in module types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(TypeSQL, NewSQL)
	r.MustRegister(TypeFinishWhenEmpty, NewFinishWhenEmpty)
	return r
}

// Register adds factory under typeName. Type names are case-insensitive.
func (r *Registry) Register(typeName string, factory Factory) error {
	typeName = strings.ToLower(strings.TrimSpace(typeName))
	if typeName == "" {
		return fmt.Errorf("register module: type name is required")
	}
	if factory == nil {
		return fmt.Errorf("register module %q: factory is nil", typeName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typeName]; exists {
		return fmt.Errorf("register module %q: type already registered", typeName)
	}
	r.factories[typeName] = factory
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(typeName string, factory Factory) {
	if err := r.Register(typeName, factory); err != nil {
		panic(err)
	}
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Build creates one instance per definition, keeping their order. Disabled
// definitions are skipped.
func (r *Registry) Build(defs []config.Module) ([]Instance, error) {
	instances := make([]Instance, 0, len(defs))
	for idx, def := range defs {
		if !def.IsEnabled() {
			continue
		}
		typeName := strings.ToLower(strings.TrimSpace(def.Type))
		r.mu.RLock()
		factory, ok := r.factories[typeName]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("modules[%d] %q: unknown type %q (known: %s)", idx, def.Name, def.Type, strings.Join(r.Types(), ", "))
		}
		mod, err := factory(def)
		if err != nil {
			return nil, fmt.Errorf("modules[%d] %q: %w", idx, def.Name, err)
		}
		name := def.Name
		if name == "" {
			name = typeName
		}
		instances = append(instances, Instance{Name: name, Type: typeName, Module: mod})
	}
	return instances, nil
}
