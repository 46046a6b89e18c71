package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/logging"
	"github.com/strata-io/strata/internal/lookup"
	"github.com/strata-io/strata/internal/runctx"
)

// Hook stages, named <pre|post>_<action>.
const (
	StagePrePlan     = "pre_plan"
	StagePostPlan    = "post_plan"
	StagePreDeploy   = "pre_deploy"
	StagePostDeploy  = "post_deploy"
	StagePreDestroy  = "pre_destroy"
	StagePostDestroy = "post_destroy"
)

// HookFunc is a hook handler. A nil map with a nil error is success without
// data; a non-nil map is stored under the hook's data key when one is set.
type HookFunc func(ctx context.Context, rctx *runctx.Context, args map[string]any) (map[string]any, error)

// HookRegistry maps hook paths to handler functions.
type HookRegistry struct {
	mu       sync.RWMutex
	handlers map[string]HookFunc
}

// NewHookRegistry returns a registry seeded with the built-in hooks.
func NewHookRegistry() *HookRegistry {
	r := &HookRegistry{handlers: make(map[string]HookFunc)}
	r.handlers["noop"] = noopHook
	return r
}

// Register adds a handler under path.
func (r *HookRegistry) Register(path string, fn HookFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[path]; exists {
		return fmt.Errorf("hook handler already registered: %s", path)
	}
	r.handlers[path] = fn
	return nil
}

// Get returns the handler registered under path.
func (r *HookRegistry) Get(path string) (HookFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[path]
	return fn, ok
}

// noopHook echoes its resolved arguments, useful for wiring data into the
// run context without side effects.
func noopHook(_ context.Context, _ *runctx.Context, args map[string]any) (map[string]any, error) {
	return args, nil
}

// HookRunner executes hook definitions for one stage, strictly in list
// order. Hooks never run concurrently with each other, even though stack
// operations do.
type HookRunner struct {
	registry *HookRegistry
	resolver *lookup.Resolver
	rctx     *runctx.Context
}

// NewHookRunner returns a runner bound to a registry, resolver, and run
// context.
func NewHookRunner(registry *HookRegistry, resolver *lookup.Resolver, rctx *runctx.Context) *HookRunner {
	return &HookRunner{registry: registry, resolver: resolver, rctx: rctx}
}

// Run executes the stage's hooks in order. A required hook failure aborts
// the remaining hooks and propagates *HookFailedError; optional failures are
// logged and skipped over.
func (r *HookRunner) Run(ctx context.Context, hooks []*ir.Hook, stage string) error {
	for _, h := range hooks {
		if !h.IsEnabled() {
			logging.Debug("hook disabled, skipping", "hook", h.Path, "stage", stage)
			continue
		}

		data, err := r.runOne(ctx, h)
		if err != nil {
			if h.IsRequired() {
				return &HookFailedError{Hook: h.Path, Err: err}
			}
			logging.Warn("optional hook failed, continuing", "hook", h.Path, "stage", stage, "error", err)
			continue
		}

		if h.DataKey != "" && data != nil {
			// Later hooks overwrite earlier data at the same key.
			r.rctx.SetHookData(h.DataKey, data)
		}
		logging.Debug("hook complete", "hook", h.Path, "stage", stage)
	}
	return nil
}

func (r *HookRunner) runOne(ctx context.Context, h *ir.Hook) (map[string]any, error) {
	fn, ok := r.registry.Get(h.Path)
	if !ok {
		return nil, fmt.Errorf("unknown hook handler: %s", h.Path)
	}

	args := make(map[string]any, len(h.Args))
	for k, v := range h.Args {
		resolved, err := r.resolver.Resolve(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolving argument %s: %w", k, err)
		}
		args[k] = resolved
	}

	return fn(ctx, r.rctx, args)
}
