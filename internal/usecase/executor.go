package usecase

import (
	"browser-agent/internal/config"
	"browser-agent/internal/entity"
	"browser-agent/internal/ports"
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	executorName   = "ActionExecutor"
	executorTracer = "usecase.executor"

	defaultScreenshotFile = "screenshot.png"
	defaultScrollAmount   = 300
	defaultWaitSeconds    = 1
)

// Executor dispatches a single Action to the browser and wraps the outcome
// as an ActionResult. Browser errors are converted, never propagated: the
// caller always gets a result, even for a malformed or unknown action.
type Executor struct {
	config  *config.Config
	logger  *zap.Logger
	browser ports.Browser
	tracer  trace.Tracer
}

type ExecutorParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.Browser
}

func NewExecutor(params ExecutorParams) *Executor {
	return &Executor{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, executorName)),
		browser: params.Browser,
		tracer:  otel.Tracer(executorTracer),
	}
}

func (e *Executor) Execute(ctx context.Context, action entity.Action) entity.ActionResult {
	const op = "Execute"
	logger := e.logger.With(zap.String(logg.Operation, op), zap.String(logg.Action, string(action.Kind)))

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op,
		attribute.String("action_kind", string(action.Kind)))

	logger.Info("Executing action", zap.String("description", action.Description))

	var result entity.ActionResult

	switch action.Kind {
	case entity.KindNavigate:
		result = e.executeNavigate(ctx, action)
	case entity.KindClick:
		result = e.executeClick(ctx, action)
	case entity.KindType:
		result = e.executeType(ctx, action)
	case entity.KindScroll:
		result = e.executeScroll(ctx, action)
	case entity.KindWait:
		result = e.executeWait(ctx, action)
	case entity.KindScreenshot:
		result = e.executeScreenshot(ctx, action)
	case entity.KindGetText:
		result = e.executeGetText(ctx, action)
	case entity.KindGetAttribute:
		result = e.executeGetAttribute(ctx, action)
	case entity.KindExecuteScript:
		result = e.executeScript(ctx, action)
	default:
		// Reaching this branch means the planner let a malformed action
		// through; still a failed result, never a crash.
		result = failedResult(apperr.Wrap(op, apperr.CodeUnknownAction,
			fmt.Errorf("unknown action kind: %q", action.Kind), map[string]any{
				apperr.MetaReason: "unknown_action_kind",
				apperr.MetaAction: string(action.Kind),
			}))
	}

	if result.Success {
		step.End(nil)
	} else {
		step.End(errors.New(result.Error))
		logger.Warn("Action failed", zap.String("error", result.Error))
	}

	return result
}

func (e *Executor) executeNavigate(ctx context.Context, action entity.Action) entity.ActionResult {
	const op = "executeNavigate"

	url := action.StringParam("url", "")
	if url == "" {
		return failedResult(apperr.InvalidReqError(op, "url", fmt.Errorf("url parameter is required")))
	}

	if err := e.browser.Navigate(ctx, url); err != nil {
		return failedResult(err)
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"url": url},
	}
}

func (e *Executor) executeClick(ctx context.Context, action entity.Action) entity.ActionResult {
	const op = "executeClick"

	selector := action.StringParam("selector", "")
	if selector == "" {
		return failedResult(apperr.InvalidReqError(op, "selector", fmt.Errorf("selector parameter is required")))
	}

	by := action.StringParam("by", "css")

	if err := e.browser.Click(ctx, by, selector); err != nil {
		return failedResult(err)
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"clicked": selector},
	}
}

func (e *Executor) executeType(ctx context.Context, action entity.Action) entity.ActionResult {
	const op = "executeType"

	selector := action.StringParam("selector", "")
	if selector == "" {
		return failedResult(apperr.InvalidReqError(op, "selector", fmt.Errorf("selector parameter is required")))
	}

	if !action.HasParam("text") {
		return failedResult(apperr.InvalidReqError(op, "text", fmt.Errorf("text parameter is required")))
	}

	text := action.StringParam("text", "")
	by := action.StringParam("by", "css")

	if err := e.browser.Fill(ctx, by, selector, text); err != nil {
		return failedResult(err)
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"typed": text, "into": selector},
	}
}

func (e *Executor) executeScroll(ctx context.Context, action entity.Action) entity.ActionResult {
	direction := action.StringParam("direction", "down")
	amount := action.IntParam("amount", defaultScrollAmount)

	if _, err := e.browser.EvaluateScript(ctx, scrollScript(direction, amount)); err != nil {
		return failedResult(err)
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"scrolled": direction, "amount": amount},
	}
}

func (e *Executor) executeWait(ctx context.Context, action entity.Action) entity.ActionResult {
	seconds := action.FloatParam("seconds", defaultWaitSeconds)
	if seconds < 0 {
		seconds = 0
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
	case <-ctx.Done():
		return failedResult(ctx.Err())
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"waited": seconds},
	}
}

func (e *Executor) executeScreenshot(ctx context.Context, action entity.Action) entity.ActionResult {
	filename := action.StringParam("filename", defaultScreenshotFile)

	path := filename
	if dir := e.config.BrowserConfig.ScreenshotDir; dir != "" && !filepath.IsAbs(filename) {
		path = filepath.Join(dir, filename)
	}

	if err := e.browser.Screenshot(ctx, path); err != nil {
		return entity.ActionResult{
			Success: false,
			Data:    map[string]any{"filename": path},
			Error:   err.Error(),
		}
	}

	return entity.ActionResult{
		Success:        true,
		Data:           map[string]any{"filename": path},
		ScreenshotPath: path,
	}
}

func (e *Executor) executeGetText(ctx context.Context, action entity.Action) entity.ActionResult {
	const op = "executeGetText"

	selector := action.StringParam("selector", "")
	if selector == "" {
		return failedResult(apperr.InvalidReqError(op, "selector", fmt.Errorf("selector parameter is required")))
	}

	by := action.StringParam("by", "css")

	text, err := e.browser.TextContent(ctx, by, selector)
	if err != nil {
		return failedResult(err)
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"text": text},
	}
}

func (e *Executor) executeGetAttribute(ctx context.Context, action entity.Action) entity.ActionResult {
	const op = "executeGetAttribute"

	selector := action.StringParam("selector", "")
	if selector == "" {
		return failedResult(apperr.InvalidReqError(op, "selector", fmt.Errorf("selector parameter is required")))
	}

	name := action.StringParam("attribute", "")
	if name == "" {
		return failedResult(apperr.InvalidReqError(op, "attribute", fmt.Errorf("attribute parameter is required")))
	}

	by := action.StringParam("by", "css")

	value, err := e.browser.Attribute(ctx, by, selector, name)
	if err != nil {
		return failedResult(err)
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"attribute": name, "value": value},
	}
}

func (e *Executor) executeScript(ctx context.Context, action entity.Action) entity.ActionResult {
	const op = "executeScript"

	script := action.StringParam("script", "")
	if script == "" {
		return failedResult(apperr.InvalidReqError(op, "script", fmt.Errorf("script parameter is required")))
	}

	result, err := e.browser.EvaluateScript(ctx, script)
	if err != nil {
		return failedResult(err)
	}

	return entity.ActionResult{
		Success: true,
		Data:    map[string]any{"result": result},
	}
}

func scrollScript(direction string, amount int) string {
	switch direction {
	case "up":
		return fmt.Sprintf("window.scrollBy(0, -%d);", amount)
	case "top":
		return "window.scrollTo(0, 0);"
	case "bottom":
		return "window.scrollTo(0, document.body.scrollHeight);"
	default:
		return fmt.Sprintf("window.scrollBy(0, %d);", amount)
	}
}

func failedResult(err error) entity.ActionResult {
	return entity.ActionResult{
		Success: false,
		Error:   err.Error(),
	}
}
