package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-io/strata/internal/graph"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/lookup"
	"github.com/strata-io/strata/internal/pgraph"
	"github.com/strata-io/strata/internal/runctx"
	"github.com/strata-io/strata/providers/null"
)

func newTestEngine(p *null.Provider, persist *pgraph.Manager) *Engine {
	return &Engine{
		Provider: p,
		Lookups:  lookup.DefaultRegistry(),
		Hooks:    NewHookRegistry(),
		Persist:  persist,
	}
}

func testInput(action ir.Action, stacks ...*ir.Stack) RunInput {
	return RunInput{
		Action:    action,
		Stacks:    stacks,
		Region:    "us-east-1",
		Namespace: "test",
		Options:   fastOpts(),
	}
}

func TestEngine_DeployAndSummary(t *testing.T) {
	p := null.New()
	eng := newTestEngine(p, nil)

	summary, err := eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "vpc"},
		&ir.Stack{Name: "app", Requires: []string{"vpc"}},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Completed)
	assert.Zero(t, summary.Failed)
	assert.True(t, p.Exists("test-vpc"))
	assert.True(t, p.Exists("test-app"))
	assert.Contains(t, summary.Describe(), "2 completed")
}

func TestEngine_NamespaceDefaulting(t *testing.T) {
	p := null.New()
	eng := newTestEngine(p, nil)

	_, err := eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "plain"},
		&ir.Stack{Name: "custom", Namespace: "other"},
	))
	require.NoError(t, err)

	assert.True(t, p.Exists("test-plain"))
	assert.True(t, p.Exists("other-custom"), "explicit namespaces are preserved")
}

func TestEngine_RequiredPreHookAbortsRun(t *testing.T) {
	p := null.New()
	eng := newTestEngine(p, nil)
	require.NoError(t, eng.Hooks.Register("fail", func(context.Context, *runctx.Context, map[string]any) (map[string]any, error) {
		return nil, errors.New("no")
	}))

	in := testInput(ir.ActionDeploy, &ir.Stack{Name: "vpc"})
	in.Hooks = &ir.Hooks{PreDeploy: []*ir.Hook{{Path: "fail"}}}

	_, err := eng.Run(context.Background(), in)
	var hookErr *HookFailedError
	require.ErrorAs(t, err, &hookErr)
	assert.False(t, p.Exists("test-vpc"), "no stack operation may start")
}

func TestEngine_PostHooksRunAfterFailure(t *testing.T) {
	p := null.New()
	p.FailOn["test-vpc"] = errors.New("boom")
	eng := newTestEngine(p, nil)

	ran := false
	require.NoError(t, eng.Hooks.Register("probe", func(context.Context, *runctx.Context, map[string]any) (map[string]any, error) {
		ran = true
		return nil, nil
	}))

	in := testInput(ir.ActionDeploy, &ir.Stack{Name: "vpc"})
	in.Hooks = &ir.Hooks{PostDeploy: []*ir.Hook{{Path: "probe"}}}

	summary, err := eng.Run(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, ran, "post hooks run even for failed runs")
}

func TestEngine_PlanSkipsReconcile(t *testing.T) {
	p := null.New()
	store := pgraph.NewMemoryStore()
	mgr := pgraph.NewManager(store, "", "test", "test")
	eng := newTestEngine(p, mgr)

	summary, err := eng.Run(context.Background(), testInput(ir.ActionPlan, &ir.Stack{Name: "vpc"}))
	require.NoError(t, err)

	assert.Equal(t, "create", summary.Results["vpc"].Planned)
	assert.Empty(t, store.Ops, "plan never touches the store")
}

func TestEngine_DeployPersistsGraph(t *testing.T) {
	p := null.New()
	store := pgraph.NewMemoryStore()
	mgr := pgraph.NewManager(store, "", "test", "test")
	eng := newTestEngine(p, mgr)

	_, err := eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "vpc"},
		&ir.Stack{Name: "app", Requires: []string{"vpc"}},
	))
	require.NoError(t, err)

	body, err := store.GetObject(context.Background(), mgr.ObjectKey())
	require.NoError(t, err)
	stored := graph.New()
	require.NoError(t, json.Unmarshal(body, stored))
	assert.Equal(t, []string{"app", "vpc"}, stored.Nodes())
	assert.Equal(t, []string{"vpc"}, stored.Deps("app"))

	// Persist happens strictly before the lock release.
	last := store.Ops[len(store.Ops)-1]
	assert.True(t, strings.HasPrefix(last, "delete-tag"), "final op releases the lock, got %q", last)
	prev := store.Ops[len(store.Ops)-2]
	assert.True(t, strings.HasPrefix(prev, "put-object"), "graph persists before unlock, got %q", prev)
}

func TestEngine_RemovedStackDestroyedBeforeDeploy(t *testing.T) {
	p := null.New()
	store := pgraph.NewMemoryStore()
	eng := newTestEngine(p, pgraph.NewManager(store, "", "test", "test"))

	// First run deploys old on top of vpc.
	_, err := eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "vpc"},
		&ir.Stack{Name: "old", Requires: []string{"vpc"}},
	))
	require.NoError(t, err)
	require.True(t, p.Exists("test-old"))

	// Second run drops old from the configuration. A fresh manager models a
	// fresh process with its own lock session.
	eng = newTestEngine(p, pgraph.NewManager(store, "", "test", "test"))
	summary, err := eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "vpc"},
	))
	require.NoError(t, err)

	assert.False(t, p.Exists("test-old"), "removed stack gets destroyed")
	assert.True(t, p.Exists("test-vpc"))
	assert.Equal(t, ir.StatusComplete, summary.Results["old"].Status)

	// old must be destroyed before its former dependency is redeployed.
	ops := p.Operations()
	destroyIdx, deployIdx := -1, -1
	for i, op := range ops {
		switch op {
		case "destroy test-old":
			destroyIdx = i
		case "deploy test-vpc":
			if i > destroyIdx && deployIdx < 0 && destroyIdx >= 0 {
				deployIdx = i
			}
		}
	}
	require.GreaterOrEqual(t, destroyIdx, 0)
	require.Greater(t, deployIdx, destroyIdx)

	// The persisted graph no longer tracks the removed stack.
	mgr := pgraph.NewManager(store, "", "test", "test")
	stored, err := mgr.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vpc"}, stored.Nodes())
}

func TestEngine_FailedRemovalStaysTracked(t *testing.T) {
	p := null.New()
	store := pgraph.NewMemoryStore()
	eng := newTestEngine(p, pgraph.NewManager(store, "", "test", "test"))

	_, err := eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "vpc"},
		&ir.Stack{Name: "old", Requires: []string{"vpc"}},
	))
	require.NoError(t, err)

	p.FailOn["test-old"] = errors.New("still in use")
	eng = newTestEngine(p, pgraph.NewManager(store, "", "test", "test"))
	_, err = eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "vpc"},
	))
	require.Error(t, err)

	// The stack still exists, so the next run must retry the teardown.
	mgr := pgraph.NewManager(store, "", "test", "test")
	stored, loadErr := mgr.Load(context.Background())
	require.NoError(t, loadErr)
	assert.Contains(t, stored.Nodes(), "old")
	assert.Equal(t, []string{"vpc"}, stored.Deps("old"), "destroy-order edges survive")
}

func TestEngine_DestroyDropsGraphNodes(t *testing.T) {
	p := null.New()
	store := pgraph.NewMemoryStore()
	eng := newTestEngine(p, pgraph.NewManager(store, "", "test", "test"))

	_, err := eng.Run(context.Background(), testInput(ir.ActionDeploy,
		&ir.Stack{Name: "vpc"},
		&ir.Stack{Name: "app", Requires: []string{"vpc"}},
	))
	require.NoError(t, err)

	eng = newTestEngine(p, pgraph.NewManager(store, "", "test", "test"))
	_, err = eng.Run(context.Background(), testInput(ir.ActionDestroy,
		&ir.Stack{Name: "vpc"},
		&ir.Stack{Name: "app", Requires: []string{"vpc"}},
	))
	require.NoError(t, err)

	assert.False(t, p.Exists("test-vpc"))
	assert.False(t, p.Exists("test-app"))

	stored, err := pgraph.NewManager(store, "", "test", "test").Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stored.Len(), "destroyed stacks leave the persisted graph")
}

func TestEngine_LockedGraphAbortsRun(t *testing.T) {
	p := null.New()
	store := pgraph.NewMemoryStore()

	holder := pgraph.NewManager(store, "", "test", "test")
	require.NoError(t, holder.Save(context.Background(), graph.New()))
	require.NoError(t, holder.Lock(context.Background()))
	opsBefore := len(store.Ops)

	eng := newTestEngine(p, pgraph.NewManager(store, "", "test", "test"))
	_, err := eng.Run(context.Background(), testInput(ir.ActionDeploy, &ir.Stack{Name: "vpc"}))

	var locked *pgraph.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, holder.Code(), locked.Holder)
	assert.Equal(t, 2, ExitCode(err))
	assert.False(t, p.Exists("test-vpc"), "no stack operation under a held lock")
	assert.Len(t, store.Ops, opsBefore, "no store mutation under a held lock")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(&ConfigError{Msg: "x"}))
	assert.Equal(t, 2, ExitCode(&graph.CycleError{Cycle: []string{"a", "a"}}))
	assert.Equal(t, 2, ExitCode(&pgraph.LockedError{Key: "k", Holder: "h"}))
	assert.Equal(t, 2, ExitCode(&lookup.AmbiguousError{Value: "v"}))
	assert.Equal(t, 1, ExitCode(errors.New("some stack failed")))
	assert.Equal(t, 1, ExitCode(&StackFailedError{Stack: "s", Err: errors.New("x")}))
}
