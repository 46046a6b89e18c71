package engine

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ConfigError reports a malformed stack or hook definition. It is fatal and
// never retried; the run aborts before any stack operation starts.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Msg
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// TransientError wraps a provider failure that is safe to retry with backoff.
// After the bounded attempt count it escalates into a StackFailedError.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient provider error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// StackFailedError is the terminal failure of one stack's operation. Stacks
// that transitively depend on it are skipped, not attempted.
type StackFailedError struct {
	Stack string
	Err   error
}

func (e *StackFailedError) Error() string {
	return fmt.Sprintf("stack %s failed: %v", e.Stack, e.Err)
}

func (e *StackFailedError) Unwrap() error {
	return e.Err
}

// HookFailedError reports a required hook failure, which aborts the
// remaining hooks in the stage and the action itself for pre-action stages.
type HookFailedError struct {
	Hook string
	Err  error
}

func (e *HookFailedError) Error() string {
	return fmt.Sprintf("hook %s failed: %v", e.Hook, e.Err)
}

func (e *HookFailedError) Unwrap() error {
	return e.Err
}

// transientAPICodes are remote API error codes treated as retryable.
var transientAPICodes = map[string]struct{}{
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"TooManyRequestsException":               {},
	"RequestLimitExceeded":                   {},
	"ServiceUnavailable":                     {},
	"InternalFailure":                        {},
	"RequestTimeout":                         {},
	"IDPCommunicationError":                  {},
	"ProvisionedThroughputExceededException": {},
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := transientAPICodes[apiErr.ErrorCode()]; ok {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return false
}
