package browser

import (
	"browser-agent/internal/entity"
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

func (m *Manager) CurrentURL(ctx context.Context) (string, error) {
	const op = "CurrentURL"

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return m.page.URL(), nil
}

func (m *Manager) Title(ctx context.Context) (string, error) {
	const op = "Title"

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	title, err := m.page.Title()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "title_failed",
		})
	}

	return title, nil
}

func (m *Manager) Viewport(ctx context.Context) (entity.Viewport, error) {
	const op = "Viewport"

	if !m.ready {
		return entity.Viewport{}, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return entity.Viewport{}, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	result, err := m.page.Evaluate(`({width: window.innerWidth, height: window.innerHeight})`)
	if err != nil {
		return entity.Viewport{}, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	sizeMap, ok := result.(map[string]interface{})
	if !ok {
		return entity.Viewport{}, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
	}

	return entity.Viewport{
		Width:  getInt(sizeMap, "width"),
		Height: getInt(sizeMap, "height"),
	}, nil
}

func (m *Manager) InteractiveElements(ctx context.Context, limit int) (elements []entity.ElementSummary, err error) {
	const op = "InteractiveElements"
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

	if limit <= 0 {
		limit = 20
	}

	m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(float64(m.config.BrowserConfig.FindTimeout)),
	})

	result, err := m.page.Evaluate(interactiveElementsScript(limit))
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageProbe,
		})
	}

	elementsList, ok := result.([]interface{})
	if !ok {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
	}

	elements = make([]entity.ElementSummary, 0, len(elementsList))

	for _, item := range elementsList {
		elemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		elem := entity.ElementSummary{
			Tag:          getString(elemMap, "tag"),
			ID:           getString(elemMap, "id"),
			Name:         getString(elemMap, "name"),
			Type:         getString(elemMap, "type"),
			Href:         getString(elemMap, "href"),
			Text:         strings.TrimSpace(getString(elemMap, "text")),
			BestSelector: getString(elemMap, "selector"),
			IsVisible:    getBool(elemMap, "visible"),
			Attributes:   make(map[string]string),
			Position: entity.Position{
				X:      getFloat(elemMap, "x"),
				Y:      getFloat(elemMap, "y"),
				Width:  getFloat(elemMap, "width"),
				Height: getFloat(elemMap, "height"),
			},
		}

		if attrs, ok := elemMap["attributes"].(map[string]interface{}); ok {
			for k, v := range attrs {
				if str, ok := v.(string); ok {
					elem.Attributes[k] = str
				}
			}
		}

		elements = append(elements, elem)
	}

	return elements, nil
}

func (m *Manager) PageInfo(ctx context.Context) (info entity.PageInfo, err error) {
	const op = "PageInfo"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return entity.PageInfo{}, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return entity.PageInfo{}, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	result, err := m.page.Evaluate(pageInfoScript())
	if err != nil {
		return entity.PageInfo{}, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageProbe,
		})
	}

	infoMap, ok := result.(map[string]interface{})
	if !ok {
		return entity.PageInfo{}, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
	}

	return entity.PageInfo{
		Forms:     getInt(infoMap, "forms"),
		Links:     getInt(infoMap, "links"),
		Images:    getInt(infoMap, "images"),
		HasLogin:  getBool(infoMap, "has_login"),
		HasSearch: getBool(infoMap, "has_search"),
		PageReady: getBool(infoMap, "ready"),
	}, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}

	if v, ok := m[key].(int); ok {
		return v
	}

	return 0
}

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}

	if v, ok := m[key].(int); ok {
		return float64(v)
	}

	return 0
}
