// Package provider defines the abstract contract between the engine and a
// remote infrastructure provider. The engine never assumes a specific
// vendor's API shape; it requires only these operations plus idempotent
// retriability.
package provider

import (
	"context"

	"github.com/strata-io/strata/internal/ir"
)

// StackState is the remote lifecycle state of a stack.
type StackState string

const (
	StateDoesNotExist StackState = "DOES_NOT_EXIST"
	StateComplete     StackState = "COMPLETE"
	StateInProgress   StackState = "IN_PROGRESS"
	StateFailed       StackState = "FAILED"
)

// Operation is a handle to an in-flight remote stack operation, polled until
// it settles.
type Operation struct {
	Stack string
	// ID is provider-specific; providers that complete synchronously may
	// leave it empty.
	ID string
}

// Provider is the abstract remote collaborator that applies stack changes.
type Provider interface {
	// Status reports the current remote state of the stack.
	Status(ctx context.Context, stack *ir.Stack) (StackState, error)

	// CreateOrUpdate starts a create or update with the resolved variables.
	CreateOrUpdate(ctx context.Context, stack *ir.Stack, vars map[string]string) (*Operation, error)

	// Destroy starts tearing down the stack. Destroying a stack that does
	// not exist is not an error.
	Destroy(ctx context.Context, stack *ir.Stack) (*Operation, error)

	// Poll reports the state of an in-flight operation.
	Poll(ctx context.Context, op *Operation) (StackState, error)

	// Outputs returns the named outputs of a deployed stack, addressed by
	// fully qualified name.
	Outputs(ctx context.Context, fqn string) (map[string]string, error)
}
