package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/strata-io/strata/internal/graph"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/logging"
	"github.com/strata-io/strata/internal/lookup"
	"github.com/strata-io/strata/internal/provider"
)

// DefaultConcurrency bounds the worker pool when the caller does not choose.
const DefaultConcurrency = 4

// Options tune one executor run.
type Options struct {
	Concurrency  int
	PollInterval time.Duration
	Retry        *RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Retry == nil {
		o.Retry = DefaultRetryPolicy()
	}
	return o
}

// Result is the per-stack outcome of one executor run.
type Result struct {
	Stack    string
	Status   ir.StackStatus
	Err      error
	Duration time.Duration
	// Planned describes the would-be change for PLAN runs: create, update,
	// or noop.
	Planned string
	// Satisfied reports whether dependents may proceed. Skipped disabled
	// stacks and locked already-deployed stacks still satisfy their
	// dependents; failures and failure-propagated skips do not.
	Satisfied bool

	terminal bool
}

// Executor performs a concurrency-bounded topological walk of a stack graph,
// invoking the provider once per stack.
type Executor struct {
	provider provider.Provider
	resolver *lookup.Resolver
}

// NewExecutor returns an executor bound to a provider and lookup resolver.
func NewExecutor(p provider.Provider, resolver *lookup.Resolver) *Executor {
	return &Executor{provider: p, resolver: resolver}
}

// Run walks the graph in dependency order for the given action and returns
// per-stack results. For DEPLOY and PLAN a stack becomes eligible once all of
// its dependencies completed; for DESTROY the walk is reversed and a stack
// becomes eligible once everything depending on it is gone.
//
// A failed stack marks all transitive dependents skipped, but independent
// branches run to completion: partial failure is a first-class outcome, and
// the returned error then aggregates the individual stack failures.
// Cancelling ctx stops dispatching new stacks; in-flight operations finish.
func (e *Executor) Run(ctx context.Context, g *graph.Graph, stacks map[string]*ir.Stack, action ir.Action, opts Options) (map[string]*Result, error) {
	opts = opts.withDefaults()

	nodes := g.Nodes()
	deps := make(map[string][]string, len(nodes))
	for _, name := range nodes {
		if action == ir.ActionDestroy {
			deps[name] = g.Dependents(name)
		} else {
			deps[name] = g.Deps(name)
		}
	}

	results := make(map[string]*Result, len(nodes))
	for _, name := range nodes {
		results[name] = &Result{Stack: name, Status: ir.StatusPending}
	}

	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup

	// Wake waiters blocked on the condition when the run is cancelled.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			// Taking the lock first guarantees every waiter is parked in
			// Wait (not between its ctx check and Wait) when we broadcast.
			mu.Lock()
			mu.Unlock() //nolint:staticcheck
			cond.Broadcast()
		case <-watchDone:
		}
	}()

	finish := func(name string, update func(r *Result)) {
		mu.Lock()
		update(results[name])
		results[name].terminal = true
		mu.Unlock()
		cond.Broadcast()
	}

	for _, name := range nodes {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			// Wait until every dependency settled, or a dependency failed.
			mu.Lock()
			for {
				if ctx.Err() != nil {
					err := ctx.Err()
					results[name].Status = ir.StatusSkipped
					results[name].Err = err
					results[name].terminal = true
					mu.Unlock()
					cond.Broadcast()
					return
				}
				ready, blocked := true, false
				for _, dep := range deps[name] {
					r := results[dep]
					switch {
					case r.terminal && r.Satisfied:
					case r.terminal:
						blocked = true
					default:
						ready = false
					}
				}
				if blocked {
					results[name].Status = ir.StatusSkipped
					results[name].Err = fmt.Errorf("dependency failed")
					results[name].terminal = true
					mu.Unlock()
					cond.Broadcast()
					return
				}
				if ready {
					break
				}
				cond.Wait()
			}
			mu.Unlock()

			sem <- struct{}{}
			defer func() { <-sem }()

			// Re-check after acquiring a worker slot: no new dispatch once
			// cancelled, but operations already started run to completion.
			if err := ctx.Err(); err != nil {
				finish(name, func(r *Result) {
					r.Status = ir.StatusSkipped
					r.Err = err
				})
				return
			}

			st, ok := stacks[name]
			if !ok {
				finish(name, func(r *Result) {
					r.Status = ir.StatusFailed
					r.Err = configErrorf("graph node %q has no stack definition", name)
				})
				return
			}
			if !st.IsEnabled() {
				logging.Debug("stack disabled, skipping", "stack", st.FQN(), "action", string(action))
				finish(name, func(r *Result) {
					r.Status = ir.StatusSkipped
					r.Satisfied = true
				})
				return
			}

			mu.Lock()
			results[name].Status = ir.StatusRunning
			mu.Unlock()

			start := time.Now()
			var planned string
			var err error
			switch action {
			case ir.ActionDeploy:
				err = e.deployStack(ctx, st, opts)
			case ir.ActionDestroy:
				err = e.destroyStack(ctx, st, opts)
			case ir.ActionPlan:
				planned, err = e.planStack(ctx, st, opts)
			default:
				err = configErrorf("unknown action %q", action)
			}
			duration := time.Since(start)

			if err != nil {
				logging.Error("stack operation failed", "stack", st.FQN(), "action", string(action), "error", err)
				finish(name, func(r *Result) {
					r.Status = ir.StatusFailed
					r.Err = &StackFailedError{Stack: st.FQN(), Err: err}
					r.Duration = duration
				})
				return
			}

			logging.Info("stack operation complete", "stack", st.FQN(), "action", string(action), "duration", duration)
			finish(name, func(r *Result) {
				r.Status = ir.StatusComplete
				r.Satisfied = true
				r.Planned = planned
				r.Duration = duration
			})
		}(name)
	}

	wg.Wait()

	var errs []error
	for _, name := range nodes {
		if r := results[name]; r.Status == ir.StatusFailed {
			errs = append(errs, r.Err)
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("%d stack(s) failed: %w", len(errs), errors.Join(errs...))
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("run cancelled: %w", err)
	}
	return results, nil
}

// deployStack creates or updates one stack.
func (e *Executor) deployStack(ctx context.Context, st *ir.Stack, opts Options) error {
	state, err := e.settledStatus(ctx, st, opts)
	if err != nil {
		return err
	}

	if st.Locked && state != provider.StateDoesNotExist {
		// Locked stacks are created once and never updated; dependents
		// still treat them as satisfied.
		logging.Info("stack locked, skipping update", "stack", st.FQN())
		return nil
	}

	vars, err := e.resolveVariables(ctx, st)
	if err != nil {
		return err
	}

	var op *provider.Operation
	err = RetryWithBackoff(ctx, opts.Retry, func() error {
		var opErr error
		op, opErr = e.provider.CreateOrUpdate(ctx, st, vars)
		return opErr
	}, IsTransient)
	if err != nil {
		return err
	}

	return e.waitOperation(ctx, op, opts)
}

// destroyStack tears down one stack. Destroying a stack that does not exist
// remotely is a no-op.
func (e *Executor) destroyStack(ctx context.Context, st *ir.Stack, opts Options) error {
	state, err := e.settledStatus(ctx, st, opts)
	if err != nil {
		return err
	}
	if state == provider.StateDoesNotExist {
		logging.Debug("stack does not exist, nothing to destroy", "stack", st.FQN())
		return nil
	}

	var op *provider.Operation
	err = RetryWithBackoff(ctx, opts.Retry, func() error {
		var opErr error
		op, opErr = e.provider.Destroy(ctx, st)
		return opErr
	}, IsTransient)
	if err != nil {
		return err
	}

	return e.waitOperation(ctx, op, opts)
}

// planStack resolves variables and reports the change the stack would see.
func (e *Executor) planStack(ctx context.Context, st *ir.Stack, opts Options) (string, error) {
	if _, err := e.resolveVariables(ctx, st); err != nil {
		return "", err
	}
	state, err := e.settledStatus(ctx, st, opts)
	if err != nil {
		return "", err
	}
	switch {
	case state == provider.StateDoesNotExist:
		return "create", nil
	case st.Locked:
		return "noop", nil
	default:
		return "update", nil
	}
}

// settledStatus reports the stack's remote state, honoring the in-progress
// policy: WAIT polls with backoff until the in-flight operation settles, FAIL
// surfaces immediately as a retryable-classified error.
func (e *Executor) settledStatus(ctx context.Context, st *ir.Stack, opts Options) (provider.StackState, error) {
	var state provider.StackState
	err := RetryWithBackoff(ctx, opts.Retry, func() error {
		var stErr error
		state, stErr = e.provider.Status(ctx, st)
		return stErr
	}, IsTransient)
	if err != nil {
		return "", err
	}
	if state != provider.StateInProgress {
		return state, nil
	}

	if st.Policy() == ir.InProgressFail {
		return "", &TransientError{Err: fmt.Errorf("stack %s has an operation in progress", st.FQN())}
	}

	logging.Info("stack operation in progress, waiting", "stack", st.FQN())
	delay := opts.PollInterval
	for state == provider.StateInProgress {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("wait cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		if delay < 1*time.Minute {
			delay = delay * 3 / 2
		}
		var stErr error
		state, stErr = e.provider.Status(ctx, st)
		if stErr != nil {
			return "", stErr
		}
	}
	return state, nil
}

// waitOperation polls an in-flight operation with bounded backoff until it
// settles.
func (e *Executor) waitOperation(ctx context.Context, op *provider.Operation, opts Options) error {
	delay := opts.PollInterval
	for {
		state, err := e.provider.Poll(ctx, op)
		if err != nil {
			if IsTransient(err) {
				state = provider.StateInProgress
			} else {
				return err
			}
		}
		switch state {
		case provider.StateComplete, provider.StateDoesNotExist:
			return nil
		case provider.StateFailed:
			return fmt.Errorf("provider reported operation failure for stack %s", op.Stack)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("poll cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		if delay < 1*time.Minute {
			delay = delay * 3 / 2
		}
	}
}

// resolveVariables evaluates every lookup in the stack's variables and
// coerces the results to the string form providers consume. Resolved
// variables are immutable for the rest of the run.
func (e *Executor) resolveVariables(ctx context.Context, st *ir.Stack) (map[string]string, error) {
	vars := make(map[string]string, len(st.Variables))
	for _, v := range st.Variables {
		resolved, err := e.resolver.Resolve(ctx, v.Value)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		s, err := lookup.ToString(resolved, 0)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		vars[v.Name] = s
	}
	return vars, nil
}
