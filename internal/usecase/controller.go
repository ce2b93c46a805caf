package usecase

import (
	"browser-agent/internal/config"
	"browser-agent/internal/entity"
	"browser-agent/internal/ports"
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	controllerName   = "TaskController"
	controllerTracer = "usecase.controller"
)

// Controller orchestrates task execution: simple-vs-complex classification,
// plan-execution with per-step recovery and escalation, history recording,
// and completion evaluation. Session state (plan, cursor, history) is owned
// by the controller and mutated only on its single execution goroutine.
type Controller struct {
	config    *config.Config
	logger    *zap.Logger
	probe     *Probe
	analyzer  *Analyzer
	planner   *Planner
	executor  *Executor
	browser   ports.Browser
	model     ports.ModelClient
	escalator ports.Escalator
	history   *entity.History
	tracer    trace.Tracer

	running     bool
	taskID      string
	task        string
	currentPlan entity.Plan
	planStep    int
	lastAction  string
}

type ControllerParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Probe     *Probe
	Analyzer  *Analyzer
	Planner   *Planner
	Executor  *Executor
	Browser   ports.Browser
	Model     ports.ModelClient
	Escalator ports.Escalator
	History   *entity.History
}

func NewController(params ControllerParams) *Controller {
	return &Controller{
		config:    params.Config,
		logger:    params.Logger.With(zap.String(logg.Layer, controllerName)),
		probe:     params.Probe,
		analyzer:  params.Analyzer,
		planner:   params.Planner,
		executor:  params.Executor,
		browser:   params.Browser,
		model:     params.Model,
		escalator: params.Escalator,
		history:   params.History,
		tracer:    otel.Tracer(controllerTracer),
	}
}

// ExecuteTask runs one task to a terminal ActionResult. Failures are always
// reported in-band; the caller never sees a raised error. A coarse outer
// retry with exponential backoff covers whole-attempt failures (browser not
// ready, panics), distinct from the fine-grained per-step recovery inside.
func (c *Controller) ExecuteTask(ctx context.Context, task string) (result entity.ActionResult) {
	const op = "ExecuteTask"

	taskID := uuid.New().String()
	logger := c.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.TaskID, taskID),
	)

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("task", task))
	defer func() {
		if result.Success {
			step.End(nil)

			return
		}

		step.End(errors.New(result.Error))
	}()

	if task == "" {
		return entity.ActionResult{Success: false, Error: "task cannot be empty"}
	}

	logger.Info("Executing task", zap.String("task", task))

	c.running = true
	c.taskID = taskID
	c.task = task
	c.currentPlan = nil
	c.planStep = 0

	defer func() {
		c.running = false
	}()

	var lastErr error

	backoff := c.config.AgentConfig.BackoffMin

	for attempt := 1; attempt <= c.config.AgentConfig.MaxAttempts; attempt++ {
		if attempt > 1 {
			logger.Info("Retrying task",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return entity.ActionResult{Success: false, Error: "task cancelled: " + ctx.Err().Error()}
			}

			backoff *= 2
			if backoff > c.config.AgentConfig.BackoffMax {
				backoff = c.config.AgentConfig.BackoffMax
			}
		}

		step.AddEvent(fmt.Sprintf("attempt %d", attempt))

		res, err := c.runAttempt(ctx, task)
		if err != nil {
			lastErr = err
			logger.Warn("Task attempt failed", zap.Int("attempt", attempt), zap.Error(err))

			continue
		}

		return res
	}

	return entity.ActionResult{
		Success: false,
		Error:   fmt.Sprintf("task failed after %d attempts: %v", c.config.AgentConfig.MaxAttempts, lastErr),
	}
}

// runAttempt returns an error only for whole-attempt failures that the outer
// retry policy should absorb; everything else comes back as an in-band
// ActionResult.
func (c *Controller) runAttempt(ctx context.Context, task string) (result entity.ActionResult, err error) {
	const op = "runAttempt"

	defer func() {
		if r := recover(); r != nil {
			err = apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("panic during task execution: %v", r), map[string]any{
				apperr.MetaReason: "panic_recovered",
			})
		}
	}()

	if !c.browser.IsReady() {
		return entity.ActionResult{}, apperr.WrapErrorWithReason(op, apperr.CodeStartup, "browser_not_ready")
	}

	if c.planner.IsComplexTask(task) {
		return c.executeComplexTask(ctx, task), nil
	}

	return c.executeSimpleTask(ctx, task), nil
}

func (c *Controller) executeSimpleTask(ctx context.Context, task string) (result entity.ActionResult) {
	const op = "executeSimpleTask"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, c.taskID))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		if result.Success {
			step.End(nil)

			return
		}

		step.End(errors.New(result.Error))
	}()

	pctx := c.probe.Capture(ctx)
	situation := c.analyzer.AnalyzeSituation(ctx, task, pctx)
	action := c.planner.PlanSingleAction(ctx, task, pctx, situation)

	step.AddEvent("executing planned action", attribute.String("kind", string(action.Kind)))

	result = c.executor.Execute(ctx, action)
	c.recordHistory(task, action, result)
	c.lastAction = string(action.Kind)

	if !result.Success {
		logger.Warn("Action failed, attempting recovery", zap.String("error", result.Error))

		return c.recoverFromError(ctx, task, result.Error)
	}

	return result
}

func (c *Controller) executeComplexTask(ctx context.Context, task string) (result entity.ActionResult) {
	const op = "executeComplexTask"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, c.taskID))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		if result.Success {
			step.End(nil)

			return
		}

		step.End(errors.New(result.Error))
	}()

	pctx := c.probe.Capture(ctx)
	situation := c.analyzer.AnalyzeSituation(ctx, task, pctx)
	plan := c.planner.PlanMultiStep(ctx, task, pctx, situation)

	c.currentPlan = plan
	c.planStep = 0

	logger.Info("Executing multi-step plan", zap.Int("steps", len(plan)))
	step.AddEvent("plan ready", attribute.Int("steps", len(plan)))

	completed := 0

	for i, planStep := range plan {
		select {
		case <-ctx.Done():
			return entity.ActionResult{
				Success: false,
				Error:   fmt.Sprintf("task cancelled at step %d of %d", i+1, len(plan)),
			}
		default:
		}

		c.planStep = i

		stepLogger := logger.With(zap.Int(logg.Step, i+1))
		stepLogger.Info("Executing step", zap.String("description", planStep.Description))

		// Prior steps may have changed the page; every step gets a fresh
		// probe and its own analysis scoped to the step description.
		stepPctx := c.probe.Capture(ctx)
		stepPctx.PlanProgress = &entity.PlanProgress{Step: i + 1, Total: len(plan)}

		stepSituation := c.analyzer.AnalyzeSituation(ctx, planStep.Description, stepPctx)
		stepLogger.Debug("Step situation",
			zap.String(logg.PageType, stepSituation.PageType),
			zap.Float64("relevance", stepSituation.ContextualRelevance.RelevanceScore),
		)

		action := planStep.Action()

		stepResult := c.executor.Execute(ctx, action)

		if !stepResult.Success {
			stepResult = c.recoverFromStepFailure(ctx, action, stepResult)
		}

		aborted := false
		replacement := ""

		if !stepResult.Success {
			decision, askErr := c.askUserForHelp(ctx, task, planStep, i, stepResult)

			switch {
			case askErr != nil:
				stepLogger.Warn("Escalation unavailable, aborting task", zap.Error(askErr))
				aborted = true
			case decision.Kind == entity.DecisionSkip:
				stepLogger.Info("Step skipped by escalation decision")
				stepResult = entity.ActionResult{
					Success: true,
					Data:    map[string]any{"skipped": true},
				}
			case decision.Kind == entity.DecisionRetry:
				stepLogger.Info("Step retried by escalation decision")
				stepResult = c.executor.Execute(ctx, action)
			case decision.Kind == entity.DecisionReplace:
				replacement = decision.NewTask
			default:
				aborted = true
			}
		}

		c.recordHistory(task, action, stepResult)
		c.lastAction = string(action.Kind)

		if replacement != "" {
			stepLogger.Info("Abandoning plan for replacement task", zap.String("task", replacement))

			return c.ExecuteTask(ctx, replacement)
		}

		if aborted {
			return entity.ActionResult{
				Success: false,
				Error:   fmt.Sprintf("task aborted at step %d of %d: %s", i+1, len(plan), stepResult.Error),
			}
		}

		if !stepResult.Success {
			return entity.ActionResult{
				Success: false,
				Error:   fmt.Sprintf("step %d of %d failed: %s", i+1, len(plan), stepResult.Error),
			}
		}

		completed++

		if i < len(plan)-1 {
			select {
			case <-time.After(c.config.AgentConfig.StepDelay):
			case <-ctx.Done():
				return entity.ActionResult{
					Success: false,
					Error:   fmt.Sprintf("task cancelled after step %d of %d", i+1, len(plan)),
				}
			}
		}
	}

	logger.Info("Plan completed", zap.Int("completed_steps", completed))

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"completed_steps": completed},
	}
}

// EvaluateCompletion asks the model whether the original task is actually
// done, judging by the current page and recent history. Never fails: an
// unusable model response yields the documented negative evaluation.
func (c *Controller) EvaluateCompletion(ctx context.Context, task string, result entity.ActionResult) entity.CompletionEvaluation {
	const op = "EvaluateCompletion"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer step.End(nil)

	pctx := c.probe.Capture(ctx)
	prompt := buildEvaluationPrompt(task, pctx, result, c.history.Recent(historyPromptDepth))

	raw, err := c.model.ChooseAction(ctx, prompt)
	if err != nil {
		logger.Warn("Completion evaluation failed", zap.Error(err))

		return failedEvaluation()
	}

	var eval entity.CompletionEvaluation

	if err := json.Unmarshal([]byte(raw), &eval); err != nil {
		extracted, extractErr := extractJSONObject(raw)
		if extractErr != nil {
			logger.Warn("Completion evaluation unparseable", zap.Error(err))

			return failedEvaluation()
		}

		if err := json.Unmarshal([]byte(extracted), &eval); err != nil {
			logger.Warn("Completion evaluation unparseable", zap.Error(err))

			return failedEvaluation()
		}
	}

	if eval.NextSteps == nil {
		eval.NextSteps = []string{}
	}

	step.AddEvent("evaluation complete", attribute.Bool("completed", eval.Completed))

	return eval
}

// Status is a point-in-time view of the session: current task, plan cursor,
// and history depth.
func (c *Controller) Status() entity.StatusSnapshot {
	return entity.StatusSnapshot{
		Running:    c.running,
		TaskID:     c.taskID,
		Task:       c.task,
		PlanSize:   len(c.currentPlan),
		PlanStep:   c.planStep,
		HistoryLen: c.history.Len(),
		LastAction: c.lastAction,
	}
}

func (c *Controller) History() []entity.HistoryEntry {
	return c.history.Entries()
}

func (c *Controller) recordHistory(task string, action entity.Action, result entity.ActionResult) {
	c.history.Append(entity.HistoryEntry{
		TaskID:    c.taskID,
		Task:      task,
		Action:    action,
		Result:    result,
		Timestamp: time.Now(),
	})
}

func failedEvaluation() entity.CompletionEvaluation {
	return entity.CompletionEvaluation{
		Completed: false,
		Evidence:  "evaluation failed",
		NextSteps: []string{},
	}
}
