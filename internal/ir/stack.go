package ir

import "fmt"

// Action is a top-level operation applied to a set of stacks.
type Action string

const (
	ActionPlan    Action = "PLAN"
	ActionDeploy  Action = "DEPLOY"
	ActionDestroy Action = "DESTROY"
)

// InProgressPolicy controls what happens when a stack is found mid-operation
// on the remote provider at the start of a run.
type InProgressPolicy string

const (
	// InProgressFail surfaces an immediate, retryable error.
	InProgressFail InProgressPolicy = "FAIL"
	// InProgressWait polls with backoff until the in-flight operation settles.
	InProgressWait InProgressPolicy = "WAIT"
)

// Variable is a single stack variable. Declaration order is significant, so
// variables are carried as a slice rather than a map. Values may contain
// unresolved lookup expressions.
type Variable struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Stack is one deployable unit of infrastructure, tracked by name within a
// namespace. A Stack is constructed once per run from configuration; its
// resolved variables live on the run, never on the definition.
type Stack struct {
	Name             string            `json:"name"`
	Namespace        string            `json:"namespace"`
	TemplateURL      string            `json:"templateUrl,omitempty"`
	Variables        []Variable        `json:"variables,omitempty"`
	Requires         []string          `json:"requires,omitempty"`
	RequiredBy       []string          `json:"requiredBy,omitempty"`
	Locked           bool              `json:"locked,omitempty"`
	Enabled          *bool             `json:"enabled,omitempty"`
	InProgressPolicy InProgressPolicy  `json:"inProgressPolicy,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// FQN returns the fully qualified, namespace-prefixed stack name.
func (s *Stack) FQN() string {
	if s.Namespace == "" {
		return s.Name
	}
	return fmt.Sprintf("%s-%s", s.Namespace, s.Name)
}

// IsEnabled reports whether the stack participates in the run. Unset means
// enabled.
func (s *Stack) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Policy returns the stack's in-progress policy, defaulting to FAIL.
func (s *Stack) Policy() InProgressPolicy {
	if s.InProgressPolicy == "" {
		return InProgressFail
	}
	return s.InProgressPolicy
}

// Validate checks the definition for authoring mistakes.
func (s *Stack) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("stack has no name")
	}
	switch s.InProgressPolicy {
	case "", InProgressFail, InProgressWait:
	default:
		return fmt.Errorf("stack %s: unknown in-progress policy %q", s.Name, s.InProgressPolicy)
	}
	return nil
}
