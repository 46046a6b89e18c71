package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), testPolicy(), func() error {
		attempts++
		if attempts < 3 {
			return &TransientError{Err: errors.New("throttled")}
		}
		return nil
	}, IsTransient)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	boom := errors.New("boom")
	err := RetryWithBackoff(context.Background(), testPolicy(), func() error {
		attempts++
		return boom
	}, IsTransient)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ExhaustsBudget(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), testPolicy(), func() error {
		attempts++
		return &TransientError{Err: errors.New("throttled")}
	}, IsTransient)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 4, attempts, "initial attempt plus three retries")
}

func TestRetryWithBackoff_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, &RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}, func() error {
		attempts++
		cancel()
		return &TransientError{Err: errors.New("throttled")}
	}, IsTransient)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Equal(t, 1, attempts)
}

func TestCalculateBackoff_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := calculateBackoff(attempt, time.Second, 5*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 5*time.Second)
	}
}

type fakeAPIError struct {
	code  string
	fault smithy.ErrorFault
}

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return e.fault }

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&TransientError{Err: errors.New("x")}))
	assert.True(t, IsTransient(&fakeAPIError{code: "Throttling"}))
	assert.True(t, IsTransient(&fakeAPIError{code: "Whatever", fault: smithy.FaultServer}))
	assert.False(t, IsTransient(&fakeAPIError{code: "ValidationError", fault: smithy.FaultClient}))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}
