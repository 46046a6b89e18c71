// Package engine builds the stack dependency graph and drives actions over
// it: hooks, persistent graph reconciliation, and the concurrent walk.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/strata-io/strata/internal/graph"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/logging"
	"github.com/strata-io/strata/internal/lookup"
	"github.com/strata-io/strata/internal/pgraph"
	"github.com/strata-io/strata/internal/provider"
	"github.com/strata-io/strata/internal/runctx"
)

// Engine wires the collaborators for one or more runs.
type Engine struct {
	Provider provider.Provider
	Lookups  *lookup.Registry
	Hooks    *HookRegistry
	// Persist enables persistent graph tracking when non-nil.
	Persist *pgraph.Manager
}

// RunInput describes one run.
type RunInput struct {
	Action    ir.Action
	Stacks    []*ir.Stack
	Hooks     *ir.Hooks
	Region    string
	Namespace string
	Vars      map[string]string
	Options   Options
}

// Summary aggregates the per-stack results of a run.
type Summary struct {
	Action  ir.Action
	Results map[string]*Result

	Completed int
	Failed    int
	Skipped   int
}

func summarize(action ir.Action, results map[string]*Result) *Summary {
	s := &Summary{Action: action, Results: results}
	for _, r := range results {
		switch r.Status {
		case ir.StatusComplete:
			s.Completed++
		case ir.StatusFailed:
			s.Failed++
		case ir.StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// providerOutputs adapts the provider to the run context's output fetcher.
// Providers are constructed per region, so the region hint is informational.
type providerOutputs struct {
	p provider.Provider
}

func (po *providerOutputs) StackOutputs(ctx context.Context, fqn, _ string) (map[string]string, error) {
	return po.p.Outputs(ctx, fqn)
}

// Run executes one action end to end: build and validate the graph, run
// pre-action hooks, reconcile the persisted graph when tracking is enabled,
// walk the graph, run post-action hooks, then persist and unlock.
//
// Configuration, graph, and locking errors abort the run before any stack
// operation starts. Per-stack failures do not; they surface in the summary
// and the returned error.
func (e *Engine) Run(ctx context.Context, in RunInput) (*Summary, error) {
	for _, s := range in.Stacks {
		if s.Namespace == "" {
			s.Namespace = in.Namespace
		}
	}

	local, err := Build(in.Stacks)
	if err != nil {
		return nil, err
	}

	rctx := runctx.New(in.Region, in.Namespace, in.Vars)
	if e.Provider != nil {
		rctx.Outputs = &providerOutputs{p: e.Provider}
	}
	resolver := lookup.NewResolver(e.Lookups, rctx)
	hookRunner := NewHookRunner(e.Hooks, resolver, rctx)
	exec := NewExecutor(e.Provider, resolver)

	// Pre-action hooks run to completion before any stack operation; a
	// required hook failure prevents the action entirely.
	if err := hookRunner.Run(ctx, in.Hooks.Pre(in.Action), preStage(in.Action)); err != nil {
		return nil, err
	}

	stacks := make(map[string]*ir.Stack, len(in.Stacks))
	for _, s := range in.Stacks {
		stacks[s.Name] = s
	}

	var (
		augmented *graph.Graph
		removed   []string
		release   pgraph.Release
	)
	if e.Persist != nil && in.Action != ir.ActionPlan {
		augmented, removed, release, err = e.Persist.Reconcile(ctx, local)
		if err != nil {
			return nil, err
		}
		// Stacks present only in the stored graph have no definition; a
		// bare pending-destroy stub is enough to tear them down.
		for _, name := range removed {
			if _, ok := stacks[name]; !ok {
				stacks[name] = &ir.Stack{Name: name, Namespace: in.Namespace}
			}
		}
	}

	results := make(map[string]*Result)
	var runErrs []error

	switch in.Action {
	case ir.ActionDestroy:
		walk := local
		if augmented != nil {
			walk = augmented
		}
		res, err := exec.Run(ctx, walk, stacks, ir.ActionDestroy, in.Options)
		mergeResults(results, res)
		if err != nil {
			runErrs = append(runErrs, err)
		}

	default: // PLAN, DEPLOY
		if in.Action == ir.ActionDeploy && len(removed) > 0 {
			// Stacks that vanished from configuration are torn down,
			// reverse-ordered, before the deploy touches anything they
			// still depend on.
			res, err := exec.Run(ctx, augmented.Restrict(removed), stacks, ir.ActionDestroy, in.Options)
			mergeResults(results, res)
			if err != nil {
				runErrs = append(runErrs, err)
			}
		}
		res, err := exec.Run(ctx, local, stacks, in.Action, in.Options)
		mergeResults(results, res)
		if err != nil {
			runErrs = append(runErrs, err)
		}
	}

	// Post-action hooks run after every stack operation finished or was
	// skipped, even for partially failed runs.
	if err := hookRunner.Run(ctx, in.Hooks.Post(in.Action), postStage(in.Action)); err != nil {
		runErrs = append(runErrs, err)
	}

	if release != nil {
		final := finalGraph(in.Action, local, augmented, removed, results)
		if err := release(ctx, final); err != nil {
			runErrs = append(runErrs, err)
		} else {
			logging.Debug("persistent graph saved and unlocked")
		}
	}

	summary := summarize(in.Action, results)
	if len(runErrs) > 0 {
		return summary, errors.Join(runErrs...)
	}
	return summary, nil
}

func mergeResults(dst, src map[string]*Result) {
	for name, r := range src {
		dst[name] = r
	}
}

// finalGraph computes the post-run graph persisted by release: successful
// destroys drop out, everything that still exists remotely stays, with edges
// restricted to surviving nodes.
func finalGraph(action ir.Action, local, augmented *graph.Graph, removed []string, results map[string]*Result) *graph.Graph {
	destroyed := func(name string) bool {
		r, ok := results[name]
		return ok && r.Status == ir.StatusComplete
	}

	if action == ir.ActionDestroy {
		walk := local
		if augmented != nil {
			walk = augmented
		}
		var keep []string
		for _, name := range walk.Nodes() {
			if !destroyed(name) {
				keep = append(keep, name)
			}
		}
		return walk.Restrict(keep)
	}

	final := local.Copy()
	for _, name := range removed {
		if destroyed(name) {
			continue
		}
		// Destroy failed or was skipped: the stack still exists, keep
		// tracking it so the next run retries the teardown.
		final.AddNode(name)
		for _, dep := range augmented.Deps(name) {
			if final.HasNode(dep) {
				final.AddEdge(name, dep)
			}
		}
	}
	return final
}

func preStage(action ir.Action) string {
	switch action {
	case ir.ActionPlan:
		return StagePrePlan
	case ir.ActionDestroy:
		return StagePreDestroy
	default:
		return StagePreDeploy
	}
}

func postStage(action ir.Action) string {
	switch action {
	case ir.ActionPlan:
		return StagePostPlan
	case ir.ActionDestroy:
		return StagePostDestroy
	default:
		return StagePostDeploy
	}
}

// ExitCode maps a run outcome to the process exit status: 0 success, 1 at
// least one stack failed, 2 configuration, graph, or lock errors that
// aborted the run.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var (
		cfg  *ConfigError
		cyc  *graph.CycleError
		lock *pgraph.LockedError
		mism *pgraph.LockMismatchError
		amb  *lookup.AmbiguousError
	)
	switch {
	case errors.As(err, &cfg), errors.As(err, &cyc), errors.As(err, &lock), errors.As(err, &mism), errors.As(err, &amb):
		return 2
	default:
		return 1
	}
}

// Describe renders a one-line, user-facing summary.
func (s *Summary) Describe() string {
	return fmt.Sprintf("%s: %d completed, %d failed, %d skipped", s.Action, s.Completed, s.Failed, s.Skipped)
}
