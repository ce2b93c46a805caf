package browser

import (
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	step.AddEvent("navigating to URL")

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	time.Sleep(500 * time.Millisecond)
	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) Click(ctx context.Context, by, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	loc, matched, err := m.findLocator(ctx, by, selector)
	if err != nil {
		return err
	}

	var lastErr error
	strategies := []struct {
		name string
		fn   func() error
	}{
		{
			name: "scroll_and_click",
			fn: func() error {
				if err := loc.ScrollIntoViewIfNeeded(); err != nil {
					return fmt.Errorf("scroll into view failed: %w", err)
				}

				time.Sleep(300 * time.Millisecond)

				err := loc.Click(playwright.LocatorClickOptions{
					Timeout: playwright.Float(clickTimeout),
				})
				if err != nil {
					return fmt.Errorf("click failed: %w", err)
				}

				return nil
			},
		},
		{
			name: "force_click",
			fn: func() error {
				err := loc.Click(playwright.LocatorClickOptions{
					Timeout: playwright.Float(clickTimeout),
					Force:   playwright.Bool(true),
				})
				if err != nil {
					return fmt.Errorf("force click failed: %w", err)
				}

				return nil
			},
		},
		{
			name: "js_direct_click",
			fn: func() error {
				if !isPlainCSS(matched) {
					return fmt.Errorf("selector is not plain css: %s", matched)
				}

				result, err := m.page.Evaluate(fmt.Sprintf(`
					(() => {
						const el = document.querySelector('%s');
						if (!el) return {success: false, error: 'element not found'};

						el.scrollIntoView({behavior: 'instant', block: 'center'});

						return new Promise((resolve) => {
							setTimeout(() => {
								try {
									el.click();
									resolve({success: true});
								} catch(e) {
									resolve({success: false, error: e.message});
								}
							}, 200);
						});
					})()
				`, escapeSelector(matched)))

				if err != nil {
					return fmt.Errorf("js evaluation failed: %w", err)
				}

				if resultMap, ok := result.(map[string]interface{}); ok {
					if success, ok := resultMap["success"].(bool); ok && !success {
						if errMsg, ok := resultMap["error"].(string); ok {
							return fmt.Errorf("js click failed: %s", errMsg)
						}
					}
				}

				time.Sleep(300 * time.Millisecond)

				return nil
			},
		},
		{
			name: "mouse_click",
			fn: func() error {
				if !isPlainCSS(matched) {
					return fmt.Errorf("selector is not plain css: %s", matched)
				}

				result, err := m.page.Evaluate(fmt.Sprintf(`
					(() => {
						const el = document.querySelector('%s');
						if (!el) return {success: false, error: 'element not found'};

						el.scrollIntoView({behavior: 'instant', block: 'center'});

						const rect = el.getBoundingClientRect();
						return {
							success: true,
							x: rect.left + rect.width / 2,
							y: rect.top + rect.height / 2
						};
					})()
				`, escapeSelector(matched)))

				if err != nil {
					return fmt.Errorf("coordinate calculation failed: %w", err)
				}

				resultMap, ok := result.(map[string]interface{})
				if !ok {
					return fmt.Errorf("invalid result format")
				}

				if success, ok := resultMap["success"].(bool); !ok || !success {
					if errMsg, ok := resultMap["error"].(string); ok {
						return fmt.Errorf("element check failed: %s", errMsg)
					}

					return fmt.Errorf("element check failed")
				}

				x, okX := resultMap["x"].(float64)
				y, okY := resultMap["y"].(float64)
				if !okX || !okY {
					return fmt.Errorf("invalid coordinates")
				}

				time.Sleep(300 * time.Millisecond)

				err = m.page.Mouse().Click(x, y)
				if err != nil {
					return fmt.Errorf("mouse click failed: %w", err)
				}

				return nil
			},
		},
	}

	for attemptNum := 0; attemptNum <= maxRetries; attemptNum++ {
		if attemptNum > 0 {
			logger.Info("Retrying click with different strategy", zap.Int("attempt", attemptNum))
			time.Sleep(retryDelay)
		}

		strategyIndex := attemptNum
		if strategyIndex >= len(strategies) {
			strategyIndex = len(strategies) - 1
		}

		strategy := strategies[strategyIndex]
		step.AddEvent(fmt.Sprintf("trying strategy: %s (attempt %d)", strategy.name, attemptNum+1))

		err = strategy.fn()
		if err == nil {
			time.Sleep(300 * time.Millisecond)
			step.AddEvent("click completed")

			return nil
		}

		lastErr = err
		logger.Warn("Strategy failed", zap.String("strategy", strategy.name), zap.Error(err))
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, lastErr, map[string]any{
		apperr.MetaReason:   "click_failed_all_strategies",
		apperr.MetaStage:    apperr.StageInteraction,
		apperr.MetaSelector: selector,
	})
}

func (m *Manager) Fill(ctx context.Context, by, selector, text string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	loc, _, err := m.findLocator(ctx, by, selector)
	if err != nil {
		return err
	}

	findTimeout := playwright.Float(float64(m.config.BrowserConfig.FindTimeout))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Info("Retrying fill", zap.Int("attempt", attempt))
			time.Sleep(retryDelay)
		}

		step.AddEvent(fmt.Sprintf("waiting for element (attempt %d)", attempt+1))

		err = loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: findTimeout,
		})

		if err != nil {
			lastErr = err

			continue
		}

		step.AddEvent(fmt.Sprintf("filling field (attempt %d)", attempt+1))

		if attempt > 0 {
			loc.Fill("", playwright.LocatorFillOptions{
				Timeout: findTimeout,
			})
			time.Sleep(200 * time.Millisecond)
		}

		err = loc.Fill(text, playwright.LocatorFillOptions{
			Timeout: findTimeout,
			Force:   playwright.Bool(attempt > 0),
		})

		if err == nil {
			time.Sleep(300 * time.Millisecond)
			step.AddEvent("fill completed")

			return nil
		}

		lastErr = err
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, lastErr, map[string]any{
		apperr.MetaReason:   "fill_failed_after_retries",
		apperr.MetaStage:    apperr.StageInteraction,
		apperr.MetaSelector: selector,
	})
}

func (m *Manager) TextContent(ctx context.Context, by, selector string) (text string, err error) {
	const op = "TextContent"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	loc, _, err := m.findLocator(ctx, by, selector)
	if err != nil {
		return "", err
	}

	text, err = loc.TextContent()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "text_content_failed",
			apperr.MetaSelector: selector,
		})
	}

	return text, nil
}

func (m *Manager) Attribute(ctx context.Context, by, selector, name string) (value string, err error) {
	const op = "Attribute"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("selector", selector),
		attribute.String("name", name))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	loc, _, err := m.findLocator(ctx, by, selector)
	if err != nil {
		return "", err
	}

	value, err = loc.GetAttribute(name)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "get_attribute_failed",
			apperr.MetaSelector: selector,
		})
	}

	return value, nil
}

func (m *Manager) EvaluateScript(ctx context.Context, script string) (result any, err error) {
	const op = "EvaluateScript"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	result, err = m.page.Evaluate(script)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	return result, nil
}

func (m *Manager) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "mkdir_failed",
				apperr.MetaStage:  apperr.StageScreenshot,
			})
		}
	}

	_, err = m.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(false),
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return nil
}

func (m *Manager) Reload(ctx context.Context) (err error) {
	const op = "Reload"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	step.AddEvent("reloading page")

	_, err = m.page.Reload(playwright.PageReloadOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "reload_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	time.Sleep(500 * time.Millisecond)
	step.AddEvent("reload completed")

	return nil
}
