// Package runctx carries the state shared across one run: the current region
// and namespace, data written by hooks, and a cache of stack outputs already
// fetched from the provider.
//
// A Context is created at run start and discarded at run end. Two runs in the
// same process never share a Context, so tests can construct isolated
// instances. Hook data and the output cache are the only state mutated from
// multiple workers; both are guarded by an internal mutex.
package runctx

import (
	"context"
	"sync"
)

// OutputFetcher fetches the outputs of a remote stack. The engine wires this
// to the active provider; tests supply fakes.
type OutputFetcher interface {
	StackOutputs(ctx context.Context, fqn, region string) (map[string]string, error)
}

// Context is the run-scoped shared state.
type Context struct {
	Region    string
	Namespace string

	// Outputs resolves remote stack outputs for the output lookup handler.
	// May be nil when no provider is attached (e.g. pure graph commands).
	Outputs OutputFetcher

	state *sharedState
}

// sharedState is shared between a Context and its region-override children.
type sharedState struct {
	mu       sync.Mutex
	vars     map[string]string
	hookData map[string]map[string]any
	outputs  map[string]map[string]string
}

// New returns a fresh run context.
func New(region, namespace string, vars map[string]string) *Context {
	if vars == nil {
		vars = make(map[string]string)
	}
	return &Context{
		Region:    region,
		Namespace: namespace,
		state: &sharedState{
			vars:     vars,
			hookData: make(map[string]map[string]any),
			outputs:  make(map[string]map[string]string),
		},
	}
}

// WithRegion returns a child context targeting a different region. The child
// shares hook data, variables, and the output cache with its parent.
func (c *Context) WithRegion(region string) *Context {
	if region == "" || region == c.Region {
		return c
	}
	child := *c
	child.Region = region
	return &child
}

// QualifiedName returns the namespace-prefixed form of a stack name.
func (c *Context) QualifiedName(stack string) string {
	if c.Namespace == "" {
		return stack
	}
	return c.Namespace + "-" + stack
}

// Var returns a run variable by name.
func (c *Context) Var(name string) (string, bool) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	v, ok := c.state.vars[name]
	return v, ok
}

// SetHookData stores a hook result under key, overwriting any prior value.
func (c *Context) SetHookData(key string, data map[string]any) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.hookData[key] = data
}

// HookData returns the data a hook stored under key.
func (c *Context) HookData(key string) (map[string]any, bool) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	d, ok := c.state.hookData[key]
	return d, ok
}

// CachedOutputs returns previously fetched outputs for a stack, keyed by the
// region-qualified cache key.
func (c *Context) CachedOutputs(key string) (map[string]string, bool) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	out, ok := c.state.outputs[key]
	return out, ok
}

// StoreOutputs caches fetched outputs for the rest of the run.
func (c *Context) StoreOutputs(key string, outputs map[string]string) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.outputs[key] = outputs
}
