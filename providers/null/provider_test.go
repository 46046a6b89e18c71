package null

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/provider"
)

func TestProvider_Lifecycle(t *testing.T) {
	p := New()
	ctx := context.Background()
	st := &ir.Stack{Name: "vpc", Namespace: "test"}

	state, err := p.Status(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, provider.StateDoesNotExist, state)

	op, err := p.CreateOrUpdate(ctx, st, map[string]string{"Cidr": "10.0.0.0/16"})
	require.NoError(t, err)

	state, err = p.Poll(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, provider.StateComplete, state)

	state, err = p.Status(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, provider.StateComplete, state)

	outputs, err := p.Outputs(ctx, "test-vpc")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/16", outputs["Cidr"])

	_, err = p.Destroy(ctx, st)
	require.NoError(t, err)
	assert.False(t, p.Exists("test-vpc"))

	_, err = p.Outputs(ctx, "test-vpc")
	assert.Error(t, err)
}

func TestProvider_FailOn(t *testing.T) {
	p := New()
	p.FailOn["test-vpc"] = errors.New("boom")
	st := &ir.Stack{Name: "vpc", Namespace: "test"}

	_, err := p.CreateOrUpdate(context.Background(), st, nil)
	assert.Error(t, err)
	assert.False(t, p.Exists("test-vpc"))
}

func TestProvider_InProgressPolls(t *testing.T) {
	p := New()
	p.Seed("test-vpc", nil)
	p.InProgressPolls["test-vpc"] = 2
	ctx := context.Background()
	st := &ir.Stack{Name: "vpc", Namespace: "test"}

	for i := 0; i < 2; i++ {
		state, err := p.Status(ctx, st)
		require.NoError(t, err)
		assert.Equal(t, provider.StateInProgress, state)
	}
	state, err := p.Status(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, provider.StateComplete, state)
}

func TestProvider_OperationLog(t *testing.T) {
	p := New()
	ctx := context.Background()

	_, err := p.CreateOrUpdate(ctx, &ir.Stack{Name: "a", Namespace: "t"}, nil)
	require.NoError(t, err)
	_, err = p.Destroy(ctx, &ir.Stack{Name: "a", Namespace: "t"})
	require.NoError(t, err)

	assert.Equal(t, []string{"deploy t-a", "destroy t-a"}, p.Operations())
}
