package pgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/strata-io/strata/internal/graph"
	"github.com/strata-io/strata/internal/logging"
)

// LockTag is the tag carrying the cooperative lock on the persisted graph
// object. Its value is the holding session's UUID.
const LockTag = "strata_lock_code"

// LockedError reports that another session holds the lock. The manager never
// waits; the user resolves it manually (strata unlock).
type LockedError struct {
	Key    string
	Holder string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("persistent graph %s is locked by session %s; run 'strata unlock' if the holder is gone", e.Key, e.Holder)
}

// LockMismatchError reports a lock operation against a record whose lock
// code does not match this session. Re-entrant acquisition also reports it;
// that is a bug, not a supported pattern.
type LockMismatchError struct {
	Key  string
	Code string
}

func (e *LockMismatchError) Error() string {
	return fmt.Sprintf("persistent graph %s lock code mismatch (session %s)", e.Key, e.Code)
}

// Release persists the final graph and releases the lock. It is returned by
// Reconcile and must be called after the executor completes, whatever the
// outcome.
type Release func(ctx context.Context, final *graph.Graph) error

// Manager brokers the persisted graph: load, lock, merge, save, unlock.
type Manager struct {
	store     ObjectStore
	prefix    string
	namespace string
	key       string
	code      string
}

// NewManager returns a manager with a fresh session lock code.
func NewManager(store ObjectStore, prefix, namespace, key string) *Manager {
	return &Manager{
		store:     store,
		prefix:    prefix,
		namespace: namespace,
		key:       key,
		code:      uuid.NewString(),
	}
}

// ObjectKey returns the store key of the persisted graph object:
// <prefix>/<namespace>/persistent_graphs/<namespace>/<key>.json.
func (m *Manager) ObjectKey() string {
	key := fmt.Sprintf("%s/persistent_graphs/%s/%s.json", m.namespace, m.namespace, m.key)
	if m.prefix != "" {
		key = m.prefix + "/" + key
	}
	return key
}

// Code returns this session's lock code.
func (m *Manager) Code() string {
	return m.code
}

// Lock acquires the cooperative lock by writing this session's code as the
// lock tag. An already-held lock is an error, never a silent wait.
func (m *Manager) Lock(ctx context.Context) error {
	key := m.ObjectKey()
	value, held, err := m.store.GetTag(ctx, key, LockTag)
	if err != nil {
		return err
	}
	if held {
		if value == m.code {
			return &LockMismatchError{Key: key, Code: m.code}
		}
		return &LockedError{Key: key, Holder: value}
	}
	if err := m.store.PutTag(ctx, key, LockTag, m.code); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", key, err)
	}
	logging.Debug("persistent graph locked", "key", key, "code", m.code)
	return nil
}

// Unlock releases the lock, refusing to clear a code this session does not
// own.
func (m *Manager) Unlock(ctx context.Context) error {
	key := m.ObjectKey()
	value, held, err := m.store.GetTag(ctx, key, LockTag)
	if err != nil {
		return err
	}
	if !held || value != m.code {
		return &LockMismatchError{Key: key, Code: m.code}
	}
	if err := m.store.DeleteTag(ctx, key, LockTag); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", key, err)
	}
	logging.Debug("persistent graph unlocked", "key", key)
	return nil
}

// ForceUnlock clears the lock tag regardless of the holder. This is the
// manual recovery procedure for records left locked by a crashed run.
func (m *Manager) ForceUnlock(ctx context.Context) error {
	return m.store.DeleteTag(ctx, m.ObjectKey(), LockTag)
}

// Load fetches and decodes the stored graph. A missing object decodes to an
// empty graph.
func (m *Manager) Load(ctx context.Context) (*graph.Graph, error) {
	body, err := m.store.GetObject(ctx, m.ObjectKey())
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return graph.New(), nil
		}
		return nil, err
	}
	g := graph.New()
	if err := json.Unmarshal(body, g); err != nil {
		return nil, fmt.Errorf("decoding persisted graph %s: %w", m.ObjectKey(), err)
	}
	return g, nil
}

// Save encodes and writes the graph.
func (m *Manager) Save(ctx context.Context, g *graph.Graph) error {
	body, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return m.store.PutObject(ctx, m.ObjectKey(), body)
}

// Reconcile diffs the stored graph against the freshly built local graph
// under the lock. It returns the augmented graph (local plus the stacks that
// vanished from configuration, edges preserved from the stored graph so
// destroy ordering stays correct), the names of those pending-destroy
// stacks, and the Release closure.
//
// Release performs two sequential writes: persist the final graph, then
// clear the lock tag. A crash between them leaves the object persisted but
// still locked; this is an intentional, documented failure mode recovered by
// 'strata unlock'.
func (m *Manager) Reconcile(ctx context.Context, local *graph.Graph) (*graph.Graph, []string, Release, error) {
	// First run: materialize the object so its tag set exists to lock.
	if _, err := m.store.GetObject(ctx, m.ObjectKey()); err != nil {
		if !errors.Is(err, ErrObjectNotFound) {
			return nil, nil, nil, err
		}
		if err := m.Save(ctx, graph.New()); err != nil {
			return nil, nil, nil, err
		}
	}

	if err := m.Lock(ctx); err != nil {
		return nil, nil, nil, err
	}

	stored, err := m.Load(ctx)
	if err != nil {
		// Loading failed after we took the lock; give it back.
		if uerr := m.Unlock(ctx); uerr != nil {
			logging.Warn("failed to release lock after load error", "error", uerr)
		}
		return nil, nil, nil, err
	}

	removed := stored.Diff(local)
	augmented := local.Copy()
	for _, name := range removed {
		augmented.AddNode(name)
	}
	for _, name := range removed {
		for _, dep := range stored.Deps(name) {
			if augmented.HasNode(dep) {
				augmented.AddEdge(name, dep)
			}
		}
		// Edges from surviving stacks onto the removed stack also shape
		// destroy order.
		for _, dependent := range stored.Dependents(name) {
			if augmented.HasNode(dependent) {
				augmented.AddEdge(dependent, name)
			}
		}
	}

	if len(removed) > 0 {
		logging.Info("stacks removed from configuration, scheduling destroy", "stacks", removed)
	}

	release := func(ctx context.Context, final *graph.Graph) error {
		if err := m.Save(ctx, final); err != nil {
			return fmt.Errorf("persisting graph: %w", err)
		}
		return m.Unlock(ctx)
	}
	return augmented, removed, release, nil
}
