package usecase

import (
	"browser-agent/internal/entity"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueAssessment feeds the analyzer's model call so the next ChooseAction
// reply is free for the planner.
func queueAssessment(model *fakeModel) {
	model.queueAction(`{"confidence_level": 0.8}`)
}

func TestExecuteTaskSimpleHappyPath(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	model := &fakeModel{}
	queueAssessment(model)
	model.queueAction(`{"kind": "click", "parameters": {"selector": "#submit"}, "description": "Click submit"}`)

	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "click submit")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "#submit", result.Data["clicked"])
	assert.Equal(t, []string{"css|#submit"}, browser.clicks)

	history := controller.History()
	require.Len(t, history, 1)
	assert.Equal(t, "click submit", history[0].Task)
	assert.Equal(t, entity.KindClick, history[0].Action.Kind)
	assert.True(t, history[0].Result.Success)

	status := controller.Status()
	assert.False(t, status.Running)
	assert.NotEmpty(t, status.TaskID)
	assert.Equal(t, history[0].TaskID, status.TaskID)
	assert.Equal(t, 1, status.HistoryLen)
	assert.Equal(t, "click", status.LastAction)
}

func TestExecuteTaskEmptyTask(t *testing.T) {
	t.Parallel()

	controller := newTestController(t, testConfig(t), newFakeBrowser(), &fakeModel{}, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "")

	assert.False(t, result.Success)
	assert.Equal(t, "task cannot be empty", result.Error)
}

func TestExecuteTaskRetriesWhenBrowserNotReady(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.ready = false

	controller := newTestController(t, testConfig(t), browser, &fakeModel{}, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "click submit")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "after 3 attempts")
	assert.Contains(t, result.Error, "browser_not_ready")
}

func TestExecuteTaskLastAttemptSucceeds(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.notReadyCalls = 2 // first two attempts fail their readiness check

	model := &fakeModel{}
	queueAssessment(model)
	model.queueAction(`{"kind": "click", "parameters": {"selector": "#submit"}}`)

	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "click submit")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "#submit", result.Data["clicked"])
	assert.Equal(t, []string{"css|#submit"}, browser.clicks)
}

func TestSimpleTaskRecoversViaAlternativeElement(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 1
	browser.elements = []entity.ElementSummary{
		{Tag: "button", Text: "Submit order", BestSelector: "#real-submit"},
		{Tag: "a", Text: "Home", BestSelector: "#home"},
	}

	model := &fakeModel{}
	queueAssessment(model)
	model.queueAction(`{"kind": "click", "parameters": {"selector": "#gone"}}`)

	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "click submit")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "alternative_element", result.Data["recovered_with"])
	assert.Contains(t, result.Data["original_error"], "element not found")
	assert.Equal(t, "#real-submit", result.Data["clicked"])

	require.Len(t, browser.clicks, 2)
	assert.Equal(t, "css|#gone", browser.clicks[0])
	assert.Equal(t, "css|#real-submit", browser.clicks[1])

	// The failure state was captured before any strategy ran.
	require.NotEmpty(t, browser.screenshots)
	assert.Contains(t, browser.screenshots[0], "recovery_")
	assert.Equal(t, browser.screenshots[0], result.ScreenshotPath)
}

func TestSimpleTaskRecoversViaWait(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 1 // no elements on the page, so no alternative to try

	model := &fakeModel{}
	queueAssessment(model)
	model.queueAction(`{"kind": "click", "parameters": {"selector": "#gone"}}`)

	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "click submit")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "wait", result.Data["recovered_with"])
	assert.Contains(t, result.Data["original_error"], "element not found")
}

func TestComplexTaskRunsAllSteps(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	model := &fakeModel{}
	model.queuePlan(`[
		{"kind": "navigate", "parameters": {"url": "https://example.com/shop"}, "description": "Open the shop"},
		{"kind": "click", "parameters": {"selector": "#add"}, "description": "Add to cart"}
	]`)

	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "open the shop and add the item")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.Data["completed_steps"])
	assert.Equal(t, []string{"https://example.com/shop"}, browser.navigations)
	assert.Equal(t, []string{"css|#add"}, browser.clicks)

	history := controller.History()
	require.Len(t, history, 2)
	assert.Equal(t, entity.KindNavigate, history[0].Action.Kind)
	assert.Equal(t, entity.KindClick, history[1].Action.Kind)

	status := controller.Status()
	assert.Equal(t, 2, status.PlanSize)
}

func TestComplexTaskStepRetriesOnceBeforeEscalating(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 1 // first try fails, the quiet retry succeeds

	model := &fakeModel{}
	model.queuePlan(`[{"kind": "click", "parameters": {"selector": "#flaky"}, "description": "Press the flaky button"}]`)

	escalator := &fakeEscalator{}
	controller := newTestController(t, testConfig(t), browser, model, escalator)

	result := controller.ExecuteTask(context.Background(), "press the button and wait")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, result.Data["completed_steps"])
	assert.Len(t, browser.clicks, 2)
	assert.Empty(t, escalator.asked)
}

func TestComplexTaskSkipDecision(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 2 // initial try and quiet retry both fail

	model := &fakeModel{}
	model.queuePlan(`[{"kind": "click", "parameters": {"selector": "#broken"}, "description": "Press the broken button"}]`)

	escalator := &fakeEscalator{decisions: []entity.EscalationDecision{{Kind: entity.DecisionSkip}}}
	controller := newTestController(t, testConfig(t), browser, model, escalator)

	result := controller.ExecuteTask(context.Background(), "press the button and wait")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, result.Data["completed_steps"])

	require.Len(t, escalator.asked, 1)
	esc := escalator.asked[0]
	assert.Equal(t, "press the button and wait", esc.Task)
	assert.Equal(t, 0, esc.StepIndex)
	assert.Equal(t, "Press the broken button", esc.Step.Description)
	assert.Contains(t, esc.Err, "element not found")
	assert.Equal(t, "https://example.com/home", esc.CurrentURL)
	assert.Contains(t, esc.ScreenshotPath, "step_failure_")

	history := controller.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Result.Success)
	assert.Equal(t, true, history[0].Result.Data["skipped"])
}

func TestComplexTaskRetryDecision(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 2 // drained before the escalation retry

	model := &fakeModel{}
	model.queuePlan(`[{"kind": "click", "parameters": {"selector": "#late"}, "description": "Press it"}]`)

	escalator := &fakeEscalator{decisions: []entity.EscalationDecision{{Kind: entity.DecisionRetry}}}
	controller := newTestController(t, testConfig(t), browser, model, escalator)

	result := controller.ExecuteTask(context.Background(), "press the button and wait")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, result.Data["completed_steps"])
	assert.Len(t, browser.clicks, 3)
}

func TestComplexTaskAbortDecision(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 2

	model := &fakeModel{}
	model.queuePlan(`[
		{"kind": "click", "parameters": {"selector": "#broken"}, "description": "Press the broken button"},
		{"kind": "screenshot", "description": "Never reached"}
	]`)

	// A drained escalator answers abort.
	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	result := controller.ExecuteTask(context.Background(), "press the button and capture the page")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "aborted at step 1 of 2")
	assert.Len(t, browser.screenshots, 1) // only the step_failure capture, step 2 never ran

	history := controller.History()
	require.Len(t, history, 1)
	assert.False(t, history[0].Result.Success)
}

func TestComplexTaskReplaceDecision(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 2

	model := &fakeModel{}
	model.queuePlan(`[{"kind": "click", "parameters": {"selector": "#broken"}, "description": "Press the broken button"}]`)

	escalator := &fakeEscalator{decisions: []entity.EscalationDecision{
		{Kind: entity.DecisionReplace, NewTask: "capture the page"},
	}}
	controller := newTestController(t, testConfig(t), browser, model, escalator)

	result := controller.ExecuteTask(context.Background(), "press the button and wait")

	// The replacement runs as a brand-new task; with the model drained it
	// resolves through the screenshot fallback.
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.ScreenshotPath, "fallback_screenshot.png")

	history := controller.History()
	require.Len(t, history, 2)
	assert.Equal(t, "press the button and wait", history[0].Task)
	assert.Equal(t, "capture the page", history[1].Task)
	assert.NotEqual(t, history[0].TaskID, history[1].TaskID)
}

func TestComplexTaskEscalatorErrorAborts(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	browser.failClicks = 2

	model := &fakeModel{}
	model.queuePlan(`[{"kind": "click", "parameters": {"selector": "#broken"}, "description": "Press it"}]`)

	escalator := &fakeEscalator{err: assert.AnError}
	controller := newTestController(t, testConfig(t), browser, model, escalator)

	result := controller.ExecuteTask(context.Background(), "press the button and wait")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "aborted at step 1 of 1")
}

func TestComplexTaskCancelledBetweenSteps(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	model := &fakeModel{}
	model.queuePlan(`[
		{"kind": "screenshot", "description": "First"},
		{"kind": "screenshot", "description": "Second"}
	]`)

	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := controller.ExecuteTask(ctx, "capture this and that")

	require.False(t, result.Success)
	assert.True(t, strings.Contains(result.Error, "cancelled"), result.Error)
}

func TestEvaluateCompletion(t *testing.T) {
	t.Parallel()

	browser := newFakeBrowser()
	model := &fakeModel{}
	model.queueAction(`{"completed": true, "evidence": "order confirmation visible", "next_steps": []}`)

	controller := newTestController(t, testConfig(t), browser, model, &fakeEscalator{})

	eval := controller.EvaluateCompletion(context.Background(), "buy the item", entity.ActionResult{Success: true})

	assert.True(t, eval.Completed)
	assert.Equal(t, "order confirmation visible", eval.Evidence)
	assert.NotNil(t, eval.NextSteps)
}

func TestEvaluateCompletionFallsBackOnGarbage(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	model.queueAction("definitely not json")

	controller := newTestController(t, testConfig(t), newFakeBrowser(), model, &fakeEscalator{})

	eval := controller.EvaluateCompletion(context.Background(), "buy the item", entity.ActionResult{Success: true})

	assert.False(t, eval.Completed)
	assert.Equal(t, "evaluation failed", eval.Evidence)
	assert.Equal(t, []string{}, eval.NextSteps)
}

func TestEvaluateCompletionFallsBackOnModelError(t *testing.T) {
	t.Parallel()

	controller := newTestController(t, testConfig(t), newFakeBrowser(), &fakeModel{}, &fakeEscalator{})

	eval := controller.EvaluateCompletion(context.Background(), "buy the item", entity.ActionResult{Success: false, Error: "nope"})

	assert.False(t, eval.Completed)
	assert.Equal(t, "evaluation failed", eval.Evidence)
	assert.Empty(t, eval.NextSteps)
}
