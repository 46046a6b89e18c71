// Package pgraph tracks the dependency graph across runs by persisting it to
// a remote object store, so stacks removed from configuration are discovered
// and torn down automatically. The persisted object is protected by a
// cooperative, tag-based lock; no concurrency control is assumed of the
// store itself.
package pgraph

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by GetObject for missing keys.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the abstract remote key/value blob store the manager
// persists graphs to. Tags are store-level attributes on an object, distinct
// from its body; the lock lives in a tag so the graph body and the lock can
// be written independently.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, body []byte) error
	GetTag(ctx context.Context, key, name string) (value string, ok bool, err error)
	PutTag(ctx context.Context, key, name, value string) error
	DeleteTag(ctx context.Context, key, name string) error
}
