package entity

// PlanStep is one action-shaped step of a multi-step plan, in the JSON form
// the model returns plans in.
type PlanStep struct {
	Kind        ActionKind     `json:"kind"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Description string         `json:"description,omitempty"`
}

// Action converts the step descriptor into an executable Action.
func (s PlanStep) Action() Action {
	return Action{
		Kind:        s.Kind,
		Parameters:  s.Parameters,
		Description: s.Description,
	}
}

// Plan is an ordered step sequence. Immutable once generated; the controller
// tracks execution progress with a separate cursor.
type Plan []PlanStep
