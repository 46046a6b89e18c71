package ir

// Hook is an ordered extension point executed before or after a top-level
// action. Args may contain lookup expressions and are resolved just before the
// hook runs.
type Hook struct {
	Path    string         `json:"path"`
	Args    map[string]any `json:"args,omitempty"`
	DataKey string         `json:"dataKey,omitempty"`
	// Required and Enabled default to true when unset.
	Required *bool `json:"required,omitempty"`
	Enabled  *bool `json:"enabled,omitempty"`
}

// IsRequired reports whether a failure of this hook aborts the stage.
func (h *Hook) IsRequired() bool {
	return h.Required == nil || *h.Required
}

// IsEnabled reports whether the hook runs at all.
func (h *Hook) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// Hooks groups hook definitions by stage.
type Hooks struct {
	PrePlan     []*Hook `json:"prePlan,omitempty"`
	PostPlan    []*Hook `json:"postPlan,omitempty"`
	PreDeploy   []*Hook `json:"preDeploy,omitempty"`
	PostDeploy  []*Hook `json:"postDeploy,omitempty"`
	PreDestroy  []*Hook `json:"preDestroy,omitempty"`
	PostDestroy []*Hook `json:"postDestroy,omitempty"`
}

// Pre returns the pre-action hooks for the given action.
func (h *Hooks) Pre(action Action) []*Hook {
	if h == nil {
		return nil
	}
	switch action {
	case ActionPlan:
		return h.PrePlan
	case ActionDeploy:
		return h.PreDeploy
	case ActionDestroy:
		return h.PreDestroy
	}
	return nil
}

// Post returns the post-action hooks for the given action.
func (h *Hooks) Post(action Action) []*Hook {
	if h == nil {
		return nil
	}
	switch action {
	case ActionPlan:
		return h.PostPlan
	case ActionDeploy:
		return h.PostDeploy
	case ActionDestroy:
		return h.PostDestroy
	}
	return nil
}
