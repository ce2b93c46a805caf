package usecase

import (
	"browser-agent/internal/config"
	"browser-agent/internal/entity"
	"browser-agent/internal/ports"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// fakeBrowser is a scripted ports.Browser. newFakeBrowser returns one that
// is ready on a plain example page; tests override fields to shape behavior
// and inspect the recorded calls afterwards.
type fakeBrowser struct {
	mu sync.Mutex

	ready    bool
	url      string
	title    string
	viewport entity.Viewport
	elements []entity.ElementSummary
	pageInfo entity.PageInfo

	text      string
	attrValue string
	scriptRes any

	urlErr      error
	titleErr    error
	viewportErr error
	elementsErr error
	pageInfoErr error
	navigateErr error
	fillErr     error
	textErr     error
	attrErr     error
	scriptErr   error
	shotErr     error
	reloadErr   error

	// failClicks makes the next N clicks fail with clickErr.
	failClicks int
	clickErr   error

	// notReadyCalls makes the next N IsReady checks report false.
	notReadyCalls int

	navigations []string
	clicks      []string
	fills       []string
	scripts     []string
	screenshots []string
	reloads     int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		ready:    true,
		url:      "https://example.com/home",
		title:    "Example Home",
		viewport: entity.Viewport{Width: 1366, Height: 768},
		pageInfo: entity.PageInfo{Links: 3, PageReady: true},
		clickErr: errors.New("element not found"),
	}
}

func (b *fakeBrowser) Launch(context.Context) error { return nil }
func (b *fakeBrowser) Close(context.Context) error  { return nil }

func (b *fakeBrowser) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.notReadyCalls > 0 {
		b.notReadyCalls--

		return false
	}

	return b.ready
}

func (b *fakeBrowser) CurrentURL(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.url, b.urlErr
}

func (b *fakeBrowser) Title(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.title, b.titleErr
}

func (b *fakeBrowser) Viewport(context.Context) (entity.Viewport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.viewport, b.viewportErr
}

func (b *fakeBrowser) InteractiveElements(context.Context, int) ([]entity.ElementSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.elements, b.elementsErr
}

func (b *fakeBrowser) PageInfo(context.Context) (entity.PageInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pageInfo, b.pageInfoErr
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.navigations = append(b.navigations, url)

	if b.navigateErr != nil {
		return b.navigateErr
	}

	b.url = url

	return nil
}

func (b *fakeBrowser) Click(_ context.Context, by, selector string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clicks = append(b.clicks, by+"|"+selector)

	if b.failClicks > 0 {
		b.failClicks--

		return b.clickErr
	}

	return nil
}

func (b *fakeBrowser) Fill(_ context.Context, by, selector, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fills = append(b.fills, fmt.Sprintf("%s|%s|%s", by, selector, text))

	return b.fillErr
}

func (b *fakeBrowser) TextContent(context.Context, string, string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.text, b.textErr
}

func (b *fakeBrowser) Attribute(context.Context, string, string, string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.attrValue, b.attrErr
}

func (b *fakeBrowser) EvaluateScript(_ context.Context, script string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scripts = append(b.scripts, script)

	return b.scriptRes, b.scriptErr
}

func (b *fakeBrowser) Screenshot(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.screenshots = append(b.screenshots, path)

	return b.shotErr
}

func (b *fakeBrowser) Reload(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reloads++

	return b.reloadErr
}

type modelReply struct {
	text string
	err  error
}

// fakeModel replays queued replies and records every prompt it saw. An empty
// queue answers with an error, which exercises the deterministic fallbacks.
type fakeModel struct {
	mu sync.Mutex

	actions []modelReply
	plans   []modelReply

	actionPrompts []string
	planPrompts   []string
}

func (m *fakeModel) queueAction(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = append(m.actions, modelReply{text: text})
}

func (m *fakeModel) queueActionErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = append(m.actions, modelReply{err: err})
}

func (m *fakeModel) queuePlan(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans = append(m.plans, modelReply{text: text})
}

func (m *fakeModel) ChooseAction(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actionPrompts = append(m.actionPrompts, prompt)

	if len(m.actions) == 0 {
		return "", errors.New("no scripted action reply")
	}

	reply := m.actions[0]
	m.actions = m.actions[1:]

	return reply.text, reply.err
}

func (m *fakeModel) ChoosePlan(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.planPrompts = append(m.planPrompts, prompt)

	if len(m.plans) == 0 {
		return "", errors.New("no scripted plan reply")
	}

	reply := m.plans[0]
	m.plans = m.plans[1:]

	return reply.text, reply.err
}

// fakeEscalator replays queued decisions; once drained it aborts.
type fakeEscalator struct {
	mu sync.Mutex

	decisions []entity.EscalationDecision
	err       error
	asked     []entity.Escalation
}

func (e *fakeEscalator) Ask(_ context.Context, esc entity.Escalation) (entity.EscalationDecision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.asked = append(e.asked, esc)

	if e.err != nil {
		return entity.EscalationDecision{}, e.err
	}

	if len(e.decisions) == 0 {
		return entity.EscalationDecision{Kind: entity.DecisionAbort}, nil
	}

	decision := e.decisions[0]
	e.decisions = e.decisions[1:]

	return decision, nil
}

// testConfig keeps every delay tiny so controller tests run in milliseconds.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		AppConfig: &config.AppConfig{LogLevel: "debug"},
		AIConfig: &config.AIConfig{
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      256,
			Temperature:    0.1,
			RequestTimeout: time.Second,
		},
		BrowserConfig: &config.BrowserConfig{
			ScreenshotDir: t.TempDir(),
			Timeout:       1000,
			FindTimeout:   100,
		},
		AgentConfig: &config.AgentConfig{
			MaxAttempts:    3,
			BackoffMin:     time.Millisecond,
			BackoffMax:     4 * time.Millisecond,
			StepDelay:      time.Millisecond,
			StepRetryDelay: time.Millisecond,
			RecoveryWait:   10 * time.Millisecond,
			HistorySize:    10,
			ElementLimit:   20,
			EscalationMode: "console",
		},
	}
}

func newTestController(t *testing.T, cfg *config.Config, browser ports.Browser, model ports.ModelClient, escalator ports.Escalator) *Controller {
	t.Helper()

	logger := zaptest.NewLogger(t)
	history := entity.NewHistory(cfg.AgentConfig.HistorySize)

	probe := NewProbe(ProbeParams{Config: cfg, Logger: logger, Browser: browser})
	analyzer := NewAnalyzer(AnalyzerParams{Config: cfg, Logger: logger, Model: model})
	planner := NewPlanner(PlannerParams{Config: cfg, Logger: logger, Model: model, History: history})
	executor := NewExecutor(ExecutorParams{Config: cfg, Logger: logger, Browser: browser})

	return NewController(ControllerParams{
		Config:    cfg,
		Logger:    logger,
		Probe:     probe,
		Analyzer:  analyzer,
		Planner:   planner,
		Executor:  executor,
		Browser:   browser,
		Model:     model,
		Escalator: escalator,
		History:   history,
	})
}

func newTestExecutor(t *testing.T, cfg *config.Config, browser ports.Browser) *Executor {
	t.Helper()

	return NewExecutor(ExecutorParams{Config: cfg, Logger: zaptest.NewLogger(t), Browser: browser})
}

func newTestPlanner(t *testing.T, model ports.ModelClient) *Planner {
	t.Helper()

	return NewPlanner(PlannerParams{
		Config:  testConfig(t),
		Logger:  zaptest.NewLogger(t),
		Model:   model,
		History: entity.NewHistory(10),
	})
}

func newTestAnalyzer(t *testing.T, model ports.ModelClient) *Analyzer {
	t.Helper()

	return NewAnalyzer(AnalyzerParams{Config: testConfig(t), Logger: zaptest.NewLogger(t), Model: model})
}

func newTestProbe(t *testing.T, browser ports.Browser) *Probe {
	t.Helper()

	return NewProbe(ProbeParams{Config: testConfig(t), Logger: zaptest.NewLogger(t), Browser: browser})
}
