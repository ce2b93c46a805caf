package entity

import "fmt"

// ActionKind is the closed set of browser actions the executor understands.
type ActionKind string

const (
	KindNavigate      ActionKind = "navigate"
	KindClick         ActionKind = "click"
	KindType          ActionKind = "type"
	KindScroll        ActionKind = "scroll"
	KindWait          ActionKind = "wait"
	KindScreenshot    ActionKind = "screenshot"
	KindGetText       ActionKind = "get_text"
	KindGetAttribute  ActionKind = "get_attribute"
	KindExecuteScript ActionKind = "execute_script"
)

// Valid reports whether k is one of the known action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case KindNavigate, KindClick, KindType, KindScroll, KindWait,
		KindScreenshot, KindGetText, KindGetAttribute, KindExecuteScript:
		return true
	default:
		return false
	}
}

// Action is a single browser instruction. Parameters carry the kind-specific
// keys; absent optional keys take the executor's documented defaults.
// Actions are not mutated after construction.
type Action struct {
	Kind        ActionKind     `json:"kind"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Description string         `json:"description,omitempty"`
}

// StringParam returns the named parameter as a string, or fallback when the
// key is absent or not a string.
func (a Action) StringParam(key, fallback string) string {
	if v, ok := a.Parameters[key].(string); ok {
		return v
	}

	return fallback
}

// IntParam returns the named parameter as an int. JSON numbers decode as
// float64, so both forms are accepted.
func (a Action) IntParam(key string, fallback int) int {
	switch v := a.Parameters[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// FloatParam returns the named parameter as a float64.
func (a Action) FloatParam(key string, fallback float64) float64 {
	switch v := a.Parameters[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

// HasParam reports whether the key is present at all, regardless of type.
func (a Action) HasParam(key string) bool {
	_, ok := a.Parameters[key]

	return ok
}

// String renders the action for logs and escalation prompts.
func (a Action) String() string {
	if a.Description != "" {
		return fmt.Sprintf("%s (%s)", a.Kind, a.Description)
	}

	return string(a.Kind)
}

// ActionResult is the outcome of executing one Action. Exactly one of
// Data/Error is meaningful depending on Success; ScreenshotPath is set only
// when a screenshot was captured, including debug screenshots on failure.
type ActionResult struct {
	Success        bool
	Data           map[string]any
	Error          string
	ScreenshotPath string
}
