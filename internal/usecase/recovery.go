package usecase

import (
	"browser-agent/internal/entity"
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	recoveryScreenshotPrefix    = "recovery"
	stepFailureScreenshotPrefix = "step_failure"
)

// recoverFromError is the single-action recovery chain: capture a debug
// screenshot of the failure state, then try strategies in order and return
// the first one that reports success. The original error always travels
// with the outcome.
func (c *Controller) recoverFromError(ctx context.Context, task, origErr string) (result entity.ActionResult) {
	const op = "recoverFromError"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, c.taskID))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("original_error", origErr))
	defer func() {
		if result.Success {
			step.End(nil)

			return
		}

		step.End(errors.New(result.Error))
	}()

	logger.Info("Attempting recovery", zap.String("error", origErr))

	shot := c.debugScreenshot(ctx, recoveryScreenshotPrefix)

	if isElementNotFoundError(origErr) {
		if recovered, ok := c.tryAlternativeElement(ctx, task); ok {
			recovered.Data["recovered_with"] = "alternative_element"
			recovered.Data["original_error"] = origErr
			recovered.ScreenshotPath = shot

			step.AddEvent("recovered via alternative element")

			return recovered
		}
	}

	waitAction := entity.Action{
		Kind: entity.KindWait,
		Parameters: map[string]any{
			"seconds": c.config.AgentConfig.RecoveryWait.Seconds(),
		},
		Description: "Waiting for the page to settle",
	}

	if waited := c.executor.Execute(ctx, waitAction); waited.Success {
		step.AddEvent("recovered via wait")

		return recoveredResult("wait", origErr, shot)
	}

	if err := c.browser.Reload(ctx); err != nil {
		logger.Warn("Recovery reload failed", zap.Error(err))

		return entity.ActionResult{
			Success:        false,
			Error:          fmt.Sprintf("recovery failed: %v (original error: %s)", err, origErr),
			ScreenshotPath: shot,
		}
	}

	step.AddEvent("recovered via reload")

	return recoveredResult("reload", origErr, shot)
}

// recoverFromStepFailure gives a failed plan step one quiet retry after a
// short settle, before the failure is escalated to the user.
func (c *Controller) recoverFromStepFailure(ctx context.Context, action entity.Action, failed entity.ActionResult) entity.ActionResult {
	const op = "recoverFromStepFailure"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, c.taskID))

	logger.Info("Step failed, retrying once",
		zap.String(logg.Action, string(action.Kind)),
		zap.String("error", failed.Error),
	)

	select {
	case <-time.After(c.config.AgentConfig.StepRetryDelay):
	case <-ctx.Done():
		return failed
	}

	retried := c.executor.Execute(ctx, action)
	if retried.Success {
		logger.Info("Step retry succeeded")
	}

	return retried
}

// askUserForHelp freezes the failure state (screenshot, URL) and hands the
// decision to the escalator.
func (c *Controller) askUserForHelp(ctx context.Context, task string, planStep entity.PlanStep, index int, failed entity.ActionResult) (entity.EscalationDecision, error) {
	const op = "askUserForHelp"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, c.taskID))

	shot := c.debugScreenshot(ctx, stepFailureScreenshotPrefix)

	currentURL, err := c.browser.CurrentURL(ctx)
	if err != nil {
		currentURL = "unknown"
	}

	logger.Info("Escalating failed step",
		zap.Int(logg.Step, index+1),
		zap.String(logg.URL, currentURL),
	)

	decision, err := c.escalator.Ask(ctx, entity.Escalation{
		Task:           task,
		Step:           planStep,
		StepIndex:      index,
		Err:            failed.Error,
		ScreenshotPath: shot,
		CurrentURL:     currentURL,
	})
	if err != nil {
		return entity.EscalationDecision{}, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "escalation_failed",
			apperr.MetaStage:  apperr.StageEscalation,
		})
	}

	return decision, nil
}

// tryAlternativeElement re-probes the page and clicks the interactive
// element whose text shares the most words with the task. Best effort:
// any miss reports false and the caller moves on to the next strategy.
func (c *Controller) tryAlternativeElement(ctx context.Context, task string) (entity.ActionResult, bool) {
	const op = "tryAlternativeElement"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, c.taskID))

	pctx := c.probe.Capture(ctx)
	if pctx.Error != "" {
		return entity.ActionResult{}, false
	}

	taskWords := wordsOf(task)

	bestScore := 0
	bestIndex := -1

	for i, el := range pctx.InteractiveElements {
		score := keywordOverlap(taskWords, el.Text)
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex < 0 {
		logger.Debug("No alternative element shares words with the task")

		return entity.ActionResult{}, false
	}

	candidate := pctx.InteractiveElements[bestIndex]
	if candidate.BestSelector == "" {
		return entity.ActionResult{}, false
	}

	logger.Info("Trying alternative element",
		zap.String(logg.Selector, candidate.BestSelector),
		zap.Int("score", bestScore),
	)

	click := entity.Action{
		Kind: entity.KindClick,
		Parameters: map[string]any{
			"selector": candidate.BestSelector,
			"by":       "css",
		},
		Description: fmt.Sprintf("Clicking alternative element %q", truncateText(candidate.Text, 40)),
	}

	result := c.executor.Execute(ctx, click)
	if !result.Success {
		logger.Debug("Alternative element click failed", zap.String("error", result.Error))

		return entity.ActionResult{}, false
	}

	return result, true
}

// debugScreenshot writes <prefix>_<unix>.png into the screenshot directory
// and returns the path, or "" when the capture itself fails.
func (c *Controller) debugScreenshot(ctx context.Context, prefix string) string {
	path := filepath.Join(c.config.BrowserConfig.ScreenshotDir, fmt.Sprintf("%s_%d.png", prefix, time.Now().Unix()))

	if err := c.browser.Screenshot(ctx, path); err != nil {
		c.logger.Debug("Debug screenshot failed", zap.Error(err))

		return ""
	}

	return path
}

func recoveredResult(strategy, origErr, screenshot string) entity.ActionResult {
	return entity.ActionResult{
		Success: true,
		Data: map[string]any{
			"recovered_with": strategy,
			"original_error": origErr,
		},
		ScreenshotPath: screenshot,
	}
}

func isElementNotFoundError(errText string) bool {
	lowered := strings.ToLower(errText)

	return strings.Contains(lowered, "not found") ||
		strings.Contains(lowered, "not_found") ||
		strings.Contains(lowered, "timeout") ||
		strings.Contains(lowered, "timed out")
}

func keywordOverlap(taskWords map[string]struct{}, text string) int {
	count := 0

	for word := range wordsOf(text) {
		if _, ok := taskWords[word]; ok {
			count++
		}
	}

	return count
}
