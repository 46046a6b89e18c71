package cloudformation

import (
	"testing"

	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/strata-io/strata/internal/provider"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		status cfntypes.StackStatus
		want   provider.StackState
	}{
		{cfntypes.StackStatusCreateComplete, provider.StateComplete},
		{cfntypes.StackStatusUpdateComplete, provider.StateComplete},
		{cfntypes.StackStatusUpdateRollbackComplete, provider.StateComplete},
		{cfntypes.StackStatusDeleteComplete, provider.StateDoesNotExist},
		{cfntypes.StackStatusCreateInProgress, provider.StateInProgress},
		{cfntypes.StackStatusUpdateInProgress, provider.StateInProgress},
		{cfntypes.StackStatusDeleteInProgress, provider.StateInProgress},
		{cfntypes.StackStatusCreateFailed, provider.StateFailed},
		{cfntypes.StackStatusRollbackComplete, provider.StateFailed},
		{cfntypes.StackStatusDeleteFailed, provider.StateFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, mapStatus(tt.status))
		})
	}
}

func TestIsNotExists(t *testing.T) {
	assert.True(t, isNotExists(&smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "Stack with id demo does not exist",
	}))
	assert.False(t, isNotExists(&smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "Template format error",
	}))
	assert.False(t, isNotExists(assert.AnError))
}

func TestIsNoUpdates(t *testing.T) {
	assert.True(t, isNoUpdates(&smithy.GenericAPIError{
		Code:    "ValidationError",
		Message: "No updates are to be performed.",
	}))
	assert.False(t, isNoUpdates(assert.AnError))
}
