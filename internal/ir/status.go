package ir

// StackStatus is the per-stack outcome of one action within a run.
type StackStatus string

const (
	StatusPending StackStatus = "pending"
	StatusRunning StackStatus = "running"
	// StatusComplete covers both a successful operation and a no-op
	// (e.g. destroying a stack that does not exist remotely).
	StatusComplete StackStatus = "complete"
	StatusFailed   StackStatus = "failed"
	// StatusSkipped marks stacks never attempted because a dependency failed
	// or the stack is disabled.
	StatusSkipped StackStatus = "skipped"
	// StatusPendingDestroy marks stacks present only in the persisted graph,
	// scheduled for teardown this run.
	StatusPendingDestroy StackStatus = "pending-destroy"
)
