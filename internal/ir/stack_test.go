package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_FQN(t *testing.T) {
	s := &Stack{Name: "vpc", Namespace: "prod"}
	assert.Equal(t, "prod-vpc", s.FQN())

	s = &Stack{Name: "vpc"}
	assert.Equal(t, "vpc", s.FQN())
}

func TestStack_IsEnabled(t *testing.T) {
	on, off := true, false

	assert.True(t, (&Stack{Name: "a"}).IsEnabled(), "unset defaults to enabled")
	assert.True(t, (&Stack{Name: "a", Enabled: &on}).IsEnabled())
	assert.False(t, (&Stack{Name: "a", Enabled: &off}).IsEnabled())
}

func TestStack_Policy(t *testing.T) {
	assert.Equal(t, InProgressFail, (&Stack{Name: "a"}).Policy())
	assert.Equal(t, InProgressWait, (&Stack{Name: "a", InProgressPolicy: InProgressWait}).Policy())
}

func TestStack_Validate(t *testing.T) {
	assert.Error(t, (&Stack{}).Validate())
	assert.Error(t, (&Stack{Name: "a", InProgressPolicy: "MAYBE"}).Validate())
	assert.NoError(t, (&Stack{Name: "a"}).Validate())
	assert.NoError(t, (&Stack{Name: "a", InProgressPolicy: InProgressWait}).Validate())
}

func TestHook_Defaults(t *testing.T) {
	h := &Hook{Path: "noop"}
	assert.True(t, h.IsRequired())
	assert.True(t, h.IsEnabled())

	off := false
	h = &Hook{Path: "noop", Required: &off, Enabled: &off}
	assert.False(t, h.IsRequired())
	assert.False(t, h.IsEnabled())
}

func TestHooks_StageSelection(t *testing.T) {
	pre := []*Hook{{Path: "a"}}
	post := []*Hook{{Path: "b"}}
	h := &Hooks{PreDeploy: pre, PostDestroy: post}

	assert.Equal(t, pre, h.Pre(ActionDeploy))
	assert.Equal(t, post, h.Post(ActionDestroy))
	assert.Nil(t, h.Pre(ActionPlan))

	var nilHooks *Hooks
	assert.Nil(t, nilHooks.Pre(ActionDeploy))
	assert.Nil(t, nilHooks.Post(ActionDeploy))
}
