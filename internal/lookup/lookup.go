// Package lookup implements the ${handler query::arg=value,...} expression
// language embedded in stack variables and hook arguments.
//
// Expressions are parsed fresh per occurrence and evaluated against the run
// context and a handler registry. Handlers are plain functions registered
// under a string name; the registry is open for extension.
package lookup

import (
	"context"
	"fmt"
	"sync"

	"github.com/strata-io/strata/internal/runctx"
)

// Func is a lookup handler. It receives the (possibly nested-resolved) query,
// the run context, and the expression's argument map. Handlers signal a
// missing value with *NotFoundError so the default argument can apply.
type Func func(ctx context.Context, rctx *runctx.Context, query string, args map[string]string) (any, error)

// NotFoundError signals that a handler could not find the requested value.
// A default argument on the expression recovers it locally; otherwise it is
// fatal and reported with the offending expression text.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("lookup target not found: %s", e.What)
}

// AmbiguousError reports a string value that combines a non-string-returning
// lookup with other text or lookups. This is a config-authoring mistake.
type AmbiguousError struct {
	Value string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous lookup value %q: a lookup returning a non-string result cannot be combined with other text or lookups", e.Value)
}

// UnknownHandlerError reports a reference to an unregistered handler.
type UnknownHandlerError struct {
	Name string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("unknown lookup handler: %s", e.Name)
}

// Registry maps handler names to handler functions.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Func)}
}

// DefaultRegistry returns a registry seeded with the built-in handlers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, fn := range Builtins() {
		r.handlers[name] = fn
	}
	return r
}

// Register adds a handler under name. Registering a duplicate name is an
// error so extensions cannot silently shadow built-ins.
func (r *Registry) Register(name string, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("lookup handler already registered: %s", name)
	}
	r.handlers[name] = fn
	return nil
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	return fn, ok
}
