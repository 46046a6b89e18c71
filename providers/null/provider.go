// Package null implements an in-memory provider used by tests and dry runs.
// Created stacks echo their resolved variables as outputs.
package null

import (
	"context"
	"fmt"
	"sync"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/provider"
)

type stackRecord struct {
	outputs map[string]string
}

// Provider is a deterministic, in-process provider.Provider.
type Provider struct {
	mu     sync.Mutex
	stacks map[string]*stackRecord

	// FailOn forces CreateOrUpdate and Destroy of the named stacks (by FQN)
	// to fail.
	FailOn map[string]error
	// InProgressPolls makes Status report IN_PROGRESS for the named stacks
	// the given number of times before settling.
	InProgressPolls map[string]int

	// Log records operations in order, for test assertions.
	Log []string
}

// New returns an empty null provider.
func New() *Provider {
	return &Provider{
		stacks:          make(map[string]*stackRecord),
		FailOn:          make(map[string]error),
		InProgressPolls: make(map[string]int),
	}
}

// Seed marks a stack as existing with the given outputs.
func (p *Provider) Seed(fqn string, outputs map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if outputs == nil {
		outputs = make(map[string]string)
	}
	p.stacks[fqn] = &stackRecord{outputs: outputs}
}

// Exists reports whether a stack is currently deployed.
func (p *Provider) Exists(fqn string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.stacks[fqn]
	return ok
}

// Operations returns a copy of the recorded operation log.
func (p *Provider) Operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Log))
	copy(out, p.Log)
	return out
}

func (p *Provider) Status(_ context.Context, stack *ir.Stack) (provider.StackState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fqn := stack.FQN()
	if n := p.InProgressPolls[fqn]; n > 0 {
		p.InProgressPolls[fqn] = n - 1
		return provider.StateInProgress, nil
	}
	if _, ok := p.stacks[fqn]; ok {
		return provider.StateComplete, nil
	}
	return provider.StateDoesNotExist, nil
}

func (p *Provider) CreateOrUpdate(_ context.Context, stack *ir.Stack, vars map[string]string) (*provider.Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fqn := stack.FQN()
	if err := p.FailOn[fqn]; err != nil {
		p.Log = append(p.Log, "fail "+fqn)
		return nil, err
	}
	outputs := make(map[string]string, len(vars))
	for k, v := range vars {
		outputs[k] = v
	}
	p.stacks[fqn] = &stackRecord{outputs: outputs}
	p.Log = append(p.Log, "deploy "+fqn)
	return &provider.Operation{Stack: fqn}, nil
}

func (p *Provider) Destroy(_ context.Context, stack *ir.Stack) (*provider.Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fqn := stack.FQN()
	if err := p.FailOn[fqn]; err != nil {
		p.Log = append(p.Log, "fail "+fqn)
		return nil, err
	}
	delete(p.stacks, fqn)
	p.Log = append(p.Log, "destroy "+fqn)
	return &provider.Operation{Stack: fqn}, nil
}

func (p *Provider) Poll(_ context.Context, op *provider.Operation) (provider.StackState, error) {
	// Null operations complete synchronously.
	return provider.StateComplete, nil
}

func (p *Provider) Outputs(_ context.Context, fqn string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.stacks[fqn]
	if !ok {
		return nil, fmt.Errorf("stack %s does not exist", fqn)
	}
	out := make(map[string]string, len(rec.outputs))
	for k, v := range rec.outputs {
		out[k] = v
	}
	return out, nil
}
