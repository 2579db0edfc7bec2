package sysconf

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Function is a helper callable from option rules as call(name, args...).
type Function func(args ...any) (any, error)

// FunctionRegistry holds rule helpers keyed by lower-cased name. It is safe
// for concurrent use; evaluators take a copy when configured.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. Names are identifiers, matched without
// regard to case, and may only be registered once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return fmt.Errorf("sysconf: function name %q is not an identifier", name)
	}
	if fn == nil {
		return fmt.Errorf("sysconf: function %q is nil", name)
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("sysconf: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a copy that later registrations on r do not affect.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("sysconf: no functions registered")
	}
	r.mu.RLock()
	fn, ok := r.functions[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sysconf: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns the registered names, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, ch := range name {
		if ch == '_' || unicode.IsLetter(ch) || (i > 0 && unicode.IsDigit(ch)) {
			continue
		}
		return false
	}
	return true
}

// WithFunctionRegistry exposes a copy of registry to the default rule engine.
func WithFunctionRegistry(registry *FunctionRegistry) ControllerOption {
	return func(cfg *controllerConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction registers fn for the default rule engine. A bad
// registration makes New fail.
func WithCustomFunction(name string, fn Function) ControllerOption {
	return func(cfg *controllerConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil && cfg.err == nil {
			cfg.err = err
		}
	}
}
