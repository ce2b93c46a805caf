package browser

import (
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const elementNotFoundPrefix = "element_not_found"

// findLocator resolves an element in several passes: the exact resolved
// selector, a short attached wait on it, alternative selector variants, and
// finally a text scan over clickable elements using tokens pulled out of the
// original selector. Returns the locator together with the selector string
// that actually matched.
func (m *Manager) findLocator(ctx context.Context, by, selector string) (playwright.Locator, string, error) {
	const op = "findLocator"
	logger := m.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Selector, selector),
	)

	if err := ctx.Err(); err != nil {
		return nil, "", apperr.Wrap(op, apperr.CodeCancelledByUser, err, map[string]any{
			apperr.MetaReason: "find_cancelled",
		})
	}

	resolved := selectorFor(by, selector)

	if loc, ok := m.tryLocator(resolved); ok {
		return loc, resolved, nil
	}

	// The element may still be rendering.
	loc := m.page.Locator(resolved).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(m.config.BrowserConfig.FindTimeout)),
	})
	if err == nil {
		return loc, resolved, nil
	}

	for _, alt := range alternativeSelectors(by, selector) {
		if loc, ok := m.tryLocator(alt); ok {
			logger.Debug("Element found via alternative selector", zap.String("alternative", alt))

			return loc, alt, nil
		}
	}

	for _, token := range selectorTokens(selector) {
		candidate := textCandidateSelector(token)
		if loc, ok := m.tryLocator(candidate); ok {
			logger.Debug("Element found via text scan", zap.String("token", token))

			return loc, candidate, nil
		}
	}

	shot := m.debugScreenshot(ctx, elementNotFoundPrefix)
	logger.Warn("Element not found",
		zap.String("by", by),
		zap.String("debug_screenshot", shot),
	)

	return nil, "", apperr.Wrap(op, apperr.CodeNotFound, fmt.Errorf("element not found: %s", selector), map[string]any{
		apperr.MetaReason:   "element_not_found",
		apperr.MetaSelector: selector,
		"by":                by,
	})
}

func (m *Manager) tryLocator(selector string) (playwright.Locator, bool) {
	loc := m.page.Locator(selector)

	count, err := loc.Count()
	if err != nil || count == 0 {
		return nil, false
	}

	return loc.First(), true
}

// debugScreenshot captures the page for post-mortem inspection and returns
// the file path, or empty when the capture itself failed.
func (m *Manager) debugScreenshot(ctx context.Context, prefix string) string {
	path := filepath.Join(m.config.BrowserConfig.ScreenshotDir, fmt.Sprintf("%s_%d.png", prefix, time.Now().Unix()))

	if err := m.Screenshot(ctx, path); err != nil {
		m.logger.Debug("Debug screenshot failed", zap.Error(err))

		return ""
	}

	return path
}
