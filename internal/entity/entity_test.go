package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionParamHelpers(t *testing.T) {
	t.Parallel()

	action := Action{
		Kind: KindScroll,
		Parameters: map[string]any{
			"direction": "up",
			"amount":    float64(250), // JSON numbers decode to float64
			"count":     3,
			"seconds":   1.5,
		},
	}

	assert.Equal(t, "up", action.StringParam("direction", "down"))
	assert.Equal(t, "down", action.StringParam("missing", "down"))
	assert.Equal(t, 250, action.IntParam("amount", 300))
	assert.Equal(t, 3, action.IntParam("count", 0))
	assert.Equal(t, 300, action.IntParam("missing", 300))
	assert.InDelta(t, 1.5, action.FloatParam("seconds", 1), 1e-9)
	assert.InDelta(t, 3.0, action.FloatParam("count", 0), 1e-9)
	assert.True(t, action.HasParam("direction"))
	assert.False(t, action.HasParam("missing"))
}

func TestActionKindValid(t *testing.T) {
	t.Parallel()

	known := []ActionKind{
		KindNavigate, KindClick, KindType, KindScroll, KindWait,
		KindScreenshot, KindGetText, KindGetAttribute, KindExecuteScript,
	}

	for _, kind := range known {
		assert.True(t, kind.Valid(), string(kind))
	}

	assert.False(t, ActionKind("teleport").Valid())
	assert.False(t, ActionKind("").Valid())
}

func TestActionString(t *testing.T) {
	t.Parallel()

	withDescription := Action{Kind: KindClick, Description: "Click the login button"}
	assert.Equal(t, "click (Click the login button)", withDescription.String())

	bare := Action{Kind: KindWait}
	assert.Equal(t, "wait", bare.String())
}

func TestPlanStepAction(t *testing.T) {
	t.Parallel()

	step := PlanStep{
		Kind:        KindNavigate,
		Parameters:  map[string]any{"url": "https://example.com"},
		Description: "Open the homepage",
	}

	action := step.Action()

	assert.Equal(t, KindNavigate, action.Kind)
	assert.Equal(t, "https://example.com", action.StringParam("url", ""))
	assert.Equal(t, "Open the homepage", action.Description)
}
