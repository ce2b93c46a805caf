package usecase

import (
	"browser-agent/internal/config"
	"browser-agent/internal/entity"
	"browser-agent/internal/ports"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	plannerName   = "ActionPlanner"
	plannerTracer = "usecase.planner"

	fallbackScreenshotFile = "fallback_screenshot.png"
	historyPromptDepth     = 3
)

// Tasks containing any of these (substring, case-insensitive) take the
// multi-step path. A heuristic, not a guarantee; ambiguous tasks default to
// the more robust complex path.
var complexTaskKeywords = []string{
	"and", "then", "after", "navigate to", "search for", "fill out",
	"login", "register", "purchase", "checkout", "multiple", "several",
}

// Planner turns (task, context, situation) into one concrete Action or an
// ordered multi-step Plan. Model failures never propagate: every planning
// call has a deterministic fallback that guarantees forward progress.
type Planner struct {
	config  *config.Config
	logger  *zap.Logger
	model   ports.ModelClient
	history *entity.History
	tracer  trace.Tracer
}

type PlannerParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Model   ports.ModelClient
	History *entity.History
}

func NewPlanner(params PlannerParams) *Planner {
	return &Planner{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, plannerName)),
		model:   params.Model,
		history: params.History,
		tracer:  otel.Tracer(plannerTracer),
	}
}

// IsComplexTask classifies the task for the simple-vs-complex split.
func (p *Planner) IsComplexTask(task string) bool {
	lowered := strings.ToLower(task)

	for _, kw := range complexTaskKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}

	return false
}

func (p *Planner) PlanSingleAction(ctx context.Context, task string, pctx entity.PageContext, situation entity.SituationAnalysis) entity.Action {
	const op = "PlanSingleAction"
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op)
	defer step.End(nil)

	prompt := buildActionPrompt(task, pctx, situation, p.history.Recent(historyPromptDepth))

	step.AddEvent("asking model for action")

	raw, err := p.model.ChooseAction(ctx, prompt)
	if err != nil {
		logger.Warn("Model call failed, using fallback action", zap.Error(err))

		return p.fallbackAction(task)
	}

	action, err := parseAction(raw)
	if err != nil {
		logger.Warn("Model response unparseable, using fallback action",
			zap.Error(err),
			zap.String("response", truncateText(raw, 200)),
		)

		return p.fallbackAction(task)
	}

	step.AddEvent("action planned", attribute.String("kind", string(action.Kind)))
	logger.Info("Action planned", zap.String(logg.Action, string(action.Kind)))

	return action
}

func (p *Planner) PlanMultiStep(ctx context.Context, task string, pctx entity.PageContext, situation entity.SituationAnalysis) entity.Plan {
	const op = "PlanMultiStep"
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op)
	defer step.End(nil)

	prompt := buildPlanPrompt(task, pctx, situation, p.history.Recent(historyPromptDepth))

	step.AddEvent("asking model for plan")

	raw, err := p.model.ChoosePlan(ctx, prompt)
	if err != nil {
		logger.Warn("Model call failed, using fallback plan", zap.Error(err))

		return fallbackPlan()
	}

	plan, err := parsePlan(raw)
	if err != nil {
		logger.Warn("Model response unparseable, using fallback plan",
			zap.Error(err),
			zap.String("response", truncateText(raw, 200)),
		)

		return fallbackPlan()
	}

	step.AddEvent("plan built", attribute.Int("steps", len(plan)))
	logger.Info("Plan built", zap.Int("steps", len(plan)))

	return plan
}

// fallbackAction guarantees forward progress when planning fails: navigate
// when the task itself carries a URL and navigation intent, otherwise leave
// a debugging artifact.
func (p *Planner) fallbackAction(task string) entity.Action {
	if url, ok := extractURL(task); ok && hasNavigationIntent(task) {
		return entity.Action{
			Kind:        entity.KindNavigate,
			Parameters:  map[string]any{"url": url},
			Description: "Navigating to URL from task text",
		}
	}

	return entity.Action{
		Kind:        entity.KindScreenshot,
		Parameters:  map[string]any{"filename": fallbackScreenshotFile},
		Description: "Taking screenshot for debugging",
	}
}

func fallbackPlan() entity.Plan {
	return entity.Plan{{
		Kind:        entity.KindScreenshot,
		Parameters:  map[string]any{"filename": fallbackScreenshotFile},
		Description: "Taking screenshot for debugging",
	}}
}

func parseAction(raw string) (entity.Action, error) {
	var action entity.Action

	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		extracted, extractErr := extractJSONObject(raw)
		if extractErr != nil {
			return entity.Action{}, err
		}

		if err := json.Unmarshal([]byte(extracted), &action); err != nil {
			return entity.Action{}, err
		}
	}

	if !action.Kind.Valid() {
		return entity.Action{}, fmt.Errorf("unknown action kind: %q", action.Kind)
	}

	return action, nil
}

func parsePlan(raw string) (entity.Plan, error) {
	var plan entity.Plan

	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		if extracted, extractErr := extractJSONArray(raw); extractErr == nil {
			if err := json.Unmarshal([]byte(extracted), &plan); err == nil {
				if len(plan) == 0 {
					return nil, fmt.Errorf("empty plan in response")
				}

				return plan, nil
			}
		}

		// Some models wrap the array in {"steps": [...]}.
		var wrapper struct {
			Steps entity.Plan `json:"steps"`
		}

		source := raw
		if extracted, extractErr := extractJSONObject(raw); extractErr == nil {
			source = extracted
		}

		if err := json.Unmarshal([]byte(source), &wrapper); err == nil && len(wrapper.Steps) > 0 {
			return wrapper.Steps, nil
		}

		return nil, fmt.Errorf("no parseable plan in response")
	}

	if len(plan) == 0 {
		return nil, fmt.Errorf("empty plan in response")
	}

	return plan, nil
}

func extractURL(task string) (string, bool) {
	for _, field := range strings.Fields(task) {
		candidate := strings.Trim(field, `.,;:!?()[]"'`)

		if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
			return candidate, true
		}

		if strings.HasPrefix(candidate, "www.") {
			return "https://" + candidate, true
		}
	}

	return "", false
}

func hasNavigationIntent(task string) bool {
	lowered := strings.ToLower(task)

	for _, kw := range []string{"navigate", "go to", "open", "visit"} {
		if strings.Contains(lowered, kw) {
			return true
		}
	}

	return false
}

func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}

	return text[:maxLen] + "..."
}
