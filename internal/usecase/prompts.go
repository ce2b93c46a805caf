package usecase

import (
	"browser-agent/internal/entity"
	"encoding/json"
	"fmt"
	"strings"
)

const actionContract = `You are a browser automation agent. Given a task and the current page context,
return a single JSON object for the next action to take.

Available actions:
- navigate: {"kind": "navigate", "parameters": {"url": "https://example.com"}}
- click: {"kind": "click", "parameters": {"selector": "button#submit", "by": "css"}}
- type: {"kind": "type", "parameters": {"selector": "input[name='username']", "text": "mytext", "by": "css"}}
- scroll: {"kind": "scroll", "parameters": {"direction": "down", "amount": 300}}
- wait: {"kind": "wait", "parameters": {"seconds": 2}}
- screenshot: {"kind": "screenshot", "parameters": {"filename": "screenshot.png"}}
- get_text: {"kind": "get_text", "parameters": {"selector": "h1", "by": "css"}}
- get_attribute: {"kind": "get_attribute", "parameters": {"selector": "a", "attribute": "href", "by": "css"}}
- execute_script: {"kind": "execute_script", "parameters": {"script": "window.scrollTo(0, 0);"}}

For the 'by' parameter use one of: css, xpath, id, name, tag, class, link_text, partial_link_text.
Always include a 'description' field explaining what the action does.
Return only valid JSON.`

func buildActionPrompt(task string, pctx entity.PageContext, situation entity.SituationAnalysis, recent []entity.HistoryEntry) string {
	var sb strings.Builder

	sb.WriteString(actionContract)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Task: %s\n\n", task))
	writePageContext(&sb, pctx)
	sb.WriteString(fmt.Sprintf("\nSituation analysis:\n%s\n", situationJSON(situation)))
	writeHistory(&sb, recent)
	sb.WriteString("\nWhat action should I take to complete this task?")

	return sb.String()
}

func buildPlanPrompt(task string, pctx entity.PageContext, situation entity.SituationAnalysis, recent []entity.HistoryEntry) string {
	var sb strings.Builder

	sb.WriteString(actionContract)
	sb.WriteString("\n\n")
	sb.WriteString("This task needs multiple steps. Return a JSON array of action objects, in execution order.\n\n")
	sb.WriteString(fmt.Sprintf("Task: %s\n\n", task))
	writePageContext(&sb, pctx)
	sb.WriteString(fmt.Sprintf("\nSituation analysis:\n%s\n", situationJSON(situation)))
	writeHistory(&sb, recent)
	sb.WriteString("\nWhat sequence of actions completes this task?")

	return sb.String()
}

func buildAssessmentPrompt(task string, pctx entity.PageContext, analysis *entity.SituationAnalysis) string {
	var sb strings.Builder

	sb.WriteString("You are assessing a browser automation situation. ")
	sb.WriteString("Given the task, the page context, and a heuristic analysis, return a JSON object:\n")
	sb.WriteString(`{"page_type": "...", "recommended_approach": "...", "potential_obstacles": [...], "success_indicators": [...], "confidence_level": 0.0, "reasoning": "..."}`)
	sb.WriteString("\nReturn only valid JSON.\n\n")
	sb.WriteString(fmt.Sprintf("Task: %s\n\n", task))
	writePageContext(&sb, pctx)

	if heuristic, err := json.Marshal(analysis); err == nil {
		sb.WriteString(fmt.Sprintf("\nHeuristic analysis:\n%s\n", heuristic))
	}

	return sb.String()
}

func buildEvaluationPrompt(task string, pctx entity.PageContext, result entity.ActionResult, recent []entity.HistoryEntry) string {
	var sb strings.Builder

	sb.WriteString("You are judging whether a browser automation task is complete. ")
	sb.WriteString("Return a JSON object:\n")
	sb.WriteString(`{"completed": true, "evidence": "...", "next_steps": [...]}`)
	sb.WriteString("\nReturn only valid JSON.\n\n")
	sb.WriteString(fmt.Sprintf("Original task: %s\n\n", task))
	writePageContext(&sb, pctx)

	sb.WriteString(fmt.Sprintf("\nLast result: success=%t", result.Success))
	if result.Error != "" {
		sb.WriteString(fmt.Sprintf(" error=%s", result.Error))
	}
	sb.WriteString("\n")

	writeHistory(&sb, recent)
	sb.WriteString("\nIs the original task complete?")

	return sb.String()
}

func writePageContext(sb *strings.Builder, pctx entity.PageContext) {
	sb.WriteString("Current page context:\n")

	if pctx.Error != "" {
		sb.WriteString(fmt.Sprintf("- Capture error: %s\n", pctx.Error))
	}

	sb.WriteString(fmt.Sprintf("- URL: %s\n", pctx.CurrentURL))
	sb.WriteString(fmt.Sprintf("- Title: %s\n", pctx.PageTitle))

	if pctx.PlanProgress != nil {
		sb.WriteString(fmt.Sprintf("- Plan progress: step %d of %d\n", pctx.PlanProgress.Step, pctx.PlanProgress.Total))
	}

	info := pctx.PageInfo
	sb.WriteString(fmt.Sprintf("- Page info: forms=%d links=%d images=%d login=%t search=%t ready=%t\n",
		info.Forms, info.Links, info.Images, info.HasLogin, info.HasSearch, info.PageReady))

	if len(pctx.InteractiveElements) == 0 {
		sb.WriteString("- Interactive elements: none\n")

		return
	}

	sb.WriteString("- Interactive elements:\n")

	for i, el := range pctx.InteractiveElements {
		text := el.Text
		if len(text) > 80 {
			text = text[:80] + "..."
		}

		sb.WriteString(fmt.Sprintf("%d. [%s] %s | selector: %s | coords: (%.0f,%.0f) size: %.0fx%.0f\n",
			i+1, el.Tag, text, el.BestSelector,
			el.Position.X, el.Position.Y, el.Position.Width, el.Position.Height))
	}
}

func writeHistory(sb *strings.Builder, recent []entity.HistoryEntry) {
	if len(recent) == 0 {
		return
	}

	sb.WriteString("\nPrevious actions:\n")

	for _, entry := range recent {
		outcome := "ok"
		if !entry.Result.Success {
			outcome = "failed: " + entry.Result.Error
		}

		sb.WriteString(fmt.Sprintf("- %s -> %s (%s)\n", entry.Task, entry.Action.String(), outcome))
	}
}

func situationJSON(situation entity.SituationAnalysis) string {
	data, err := json.Marshal(situation)
	if err != nil {
		return "{}"
	}

	return string(data)
}
