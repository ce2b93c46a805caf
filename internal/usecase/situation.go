package usecase

import (
	"browser-agent/internal/config"
	"browser-agent/internal/entity"
	"browser-agent/internal/ports"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	analyzerName   = "SituationAnalyzer"
	analyzerTracer = "usecase.analyzer"

	complexitySimple  = "simple"
	complexityMedium  = "medium"
	complexityComplex = "complex"

	pageTypeLogin    = "login"
	pageTypeSearch   = "search"
	pageTypeForm     = "form"
	pageTypeCheckout = "checkout"
	pageTypeShopping = "shopping"
	pageTypeGeneral  = "general"

	pageStateLoading = "loading"
	pageStateEmpty   = "empty"
	pageStateReady   = "ready"

	intentMultiStep = "multi_step"

	defaultApproach     = "standard"
	fallbackConfidence  = 0.5
	maxRelevantElements = 5
)

// Single words match whole task words, phrases match as substrings.
var intentChecks = []struct {
	tag      string
	keywords []string
}{
	{"navigation", []string{"navigate", "go to", "open", "visit", "url"}},
	{"interaction", []string{"click", "press", "select", "choose", "tap"}},
	{"input", []string{"type", "fill", "enter", "input", "write"}},
	{"search", []string{"search", "find", "look for", "locate"}},
	{"extraction", []string{"extract", "get text", "read", "scrape", "copy"}},
	{"verification", []string{"verify", "check", "confirm", "ensure", "validate"}},
	{intentMultiStep, []string{"and", "then", "after"}},
}

var elementHints = []string{"button", "link", "field", "input", "form", "checkbox", "dropdown", "menu", "tab", "icon"}

// Analyzer derives task intent, page-type classification, and contextual
// relevance from a task string plus a captured page context, then layers a
// model-generated qualitative judgment on top. The model part is optional:
// when it fails the deterministic analysis stands on its own.
type Analyzer struct {
	config *config.Config
	logger *zap.Logger
	model  ports.ModelClient
	tracer trace.Tracer
}

type AnalyzerParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Model  ports.ModelClient
}

func NewAnalyzer(params AnalyzerParams) *Analyzer {
	return &Analyzer{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, analyzerName)),
		model:  params.Model,
		tracer: otel.Tracer(analyzerTracer),
	}
}

// AnalyzeSituation never fails; the worst case is a purely deterministic
// analysis with fallback confidence.
func (a *Analyzer) AnalyzeSituation(ctx context.Context, task string, pctx entity.PageContext) entity.SituationAnalysis {
	const op = "AnalyzeSituation"
	logger := a.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, a.tracer, logger, op,
		attribute.Int("elements", len(pctx.InteractiveElements)))
	defer step.End(nil)

	analysis := entity.SituationAnalysis{
		TaskAnalysis:        a.analyzeTask(task),
		PageAnalysis:        a.analyzePage(pctx),
		ContextualRelevance: a.analyzeRelevance(task, pctx),
	}
	analysis.PageType = analysis.PageAnalysis.Type

	step.AddEvent("deterministic analysis complete",
		attribute.String("page_type", analysis.PageType),
		attribute.String("complexity", analysis.TaskAnalysis.Complexity))

	a.mergeModelAssessment(ctx, task, pctx, &analysis)

	logger.Debug("Situation analyzed",
		zap.String(logg.PageType, analysis.PageType),
		zap.Float64("relevance", analysis.ContextualRelevance.RelevanceScore),
		zap.Float64("confidence", analysis.ConfidenceLevel),
	)

	return analysis
}

func (a *Analyzer) analyzeTask(task string) entity.TaskAnalysis {
	lowered := strings.ToLower(task)
	words := strings.Fields(lowered)
	wordSet := wordsOf(task)

	intent := make([]string, 0, len(intentChecks))
	multiStep := false

	for _, check := range intentChecks {
		if !matchesKeywords(lowered, wordSet, check.keywords) {
			continue
		}

		intent = append(intent, check.tag)

		if check.tag == intentMultiStep {
			multiStep = true
		}
	}

	complexity := complexitySimple
	switch {
	case multiStep || len(words) > 10:
		complexity = complexityComplex
	case len(words) > 5:
		complexity = complexityMedium
	}

	return entity.TaskAnalysis{
		Intent:             intent,
		Complexity:         complexity,
		WordCount:          len(words),
		HasURL:             hasURL(lowered),
		HasSpecificElement: hasSpecificElement(lowered, wordSet),
	}
}

func (a *Analyzer) analyzePage(pctx entity.PageContext) entity.PageAnalysis {
	info := pctx.PageInfo

	elementTypes := make(map[string]int, 8)
	for _, el := range pctx.InteractiveElements {
		elementTypes[el.Tag]++
	}

	return entity.PageAnalysis{
		Type:                     classifyPageType(pctx),
		State:                    classifyPageState(pctx),
		InteractiveElementsCount: len(pctx.InteractiveElements),
		ElementTypes:             elementTypes,
		HasForms:                 info.Forms > 0,
		HasLinks:                 info.Links > 0,
		HasImages:                info.Images > 0,
		URLDomain:                domainOf(pctx.CurrentURL),
	}
}

func (a *Analyzer) analyzeRelevance(task string, pctx entity.PageContext) entity.ContextualRelevance {
	taskWords := wordsOf(task)

	matched := 0
	relevant := make([]string, 0, maxRelevantElements)

	for _, el := range pctx.InteractiveElements {
		if !sharesWord(taskWords, el.Text) {
			continue
		}

		matched++

		if len(relevant) < maxRelevantElements {
			label := el.Text
			if label == "" {
				label = el.BestSelector
			}
			relevant = append(relevant, label)
		}
	}

	total := len(pctx.InteractiveElements)
	if total < 1 {
		total = 1
	}

	return entity.ContextualRelevance{
		RelevanceScore:   clamp01(float64(matched) / float64(total)),
		RelevantElements: relevant,
	}
}

type modelAssessment struct {
	PageType            string   `json:"page_type"`
	RecommendedApproach string   `json:"recommended_approach"`
	PotentialObstacles  []string `json:"potential_obstacles"`
	SuccessIndicators   []string `json:"success_indicators"`
	ConfidenceLevel     float64  `json:"confidence_level"`
	Reasoning           string   `json:"reasoning"`
}

// mergeModelAssessment layers the model's qualitative judgment on top of the
// deterministic analysis. Any failure here falls back to defaults and is
// never propagated.
func (a *Analyzer) mergeModelAssessment(ctx context.Context, task string, pctx entity.PageContext, analysis *entity.SituationAnalysis) {
	const op = "mergeModelAssessment"
	logger := a.logger.With(zap.String(logg.Operation, op))

	prompt := buildAssessmentPrompt(task, pctx, analysis)

	raw, err := a.model.ChooseAction(ctx, prompt)
	if err != nil {
		logger.Warn("Model assessment unavailable, keeping deterministic analysis", zap.Error(err))
		applyFallbackAssessment(analysis)

		return
	}

	var assessment modelAssessment

	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		extracted, extractErr := extractJSONObject(raw)
		if extractErr != nil {
			logger.Warn("Model assessment unparseable, keeping deterministic analysis", zap.Error(err))
			applyFallbackAssessment(analysis)

			return
		}

		if err := json.Unmarshal([]byte(extracted), &assessment); err != nil {
			logger.Warn("Model assessment unparseable, keeping deterministic analysis", zap.Error(err))
			applyFallbackAssessment(analysis)

			return
		}
	}

	if assessment.PageType != "" {
		analysis.PageType = assessment.PageType
	}

	analysis.RecommendedApproach = assessment.RecommendedApproach
	if analysis.RecommendedApproach == "" {
		analysis.RecommendedApproach = defaultApproach
	}

	analysis.PotentialObstacles = assessment.PotentialObstacles
	if analysis.PotentialObstacles == nil {
		analysis.PotentialObstacles = []string{}
	}

	analysis.SuccessIndicators = assessment.SuccessIndicators
	if analysis.SuccessIndicators == nil {
		analysis.SuccessIndicators = []string{}
	}

	analysis.ConfidenceLevel = clamp01(assessment.ConfidenceLevel)
	analysis.Reasoning = assessment.Reasoning
}

func applyFallbackAssessment(analysis *entity.SituationAnalysis) {
	analysis.RecommendedApproach = defaultApproach
	analysis.PotentialObstacles = []string{}
	analysis.SuccessIndicators = []string{}
	analysis.ConfidenceLevel = fallbackConfidence
	analysis.Reasoning = "deterministic analysis only"
}

func classifyPageType(pctx entity.PageContext) string {
	info := pctx.PageInfo
	title := strings.ToLower(pctx.PageTitle)

	switch {
	case info.HasLogin:
		return pageTypeLogin
	case info.HasSearch:
		return pageTypeSearch
	case info.Forms > 0 || strings.Contains(title, "form"):
		return pageTypeForm
	case anyElementTextContains(pctx.InteractiveElements, "checkout"):
		return pageTypeCheckout
	case anyElementTextContains(pctx.InteractiveElements, "cart"):
		return pageTypeShopping
	default:
		return pageTypeGeneral
	}
}

func classifyPageState(pctx entity.PageContext) string {
	switch {
	case !pctx.PageInfo.PageReady:
		return pageStateLoading
	case len(pctx.InteractiveElements) == 0:
		return pageStateEmpty
	default:
		return pageStateReady
	}
}

func anyElementTextContains(elements []entity.ElementSummary, needle string) bool {
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Text), needle) {
			return true
		}
	}

	return false
}

func matchesKeywords(lowered string, wordSet map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lowered, kw) {
				return true
			}

			continue
		}

		if _, ok := wordSet[kw]; ok {
			return true
		}
	}

	return false
}

func hasURL(lowered string) bool {
	return strings.Contains(lowered, "http://") ||
		strings.Contains(lowered, "https://") ||
		strings.Contains(lowered, "www.")
}

func hasSpecificElement(lowered string, wordSet map[string]struct{}) bool {
	if strings.ContainsAny(lowered, `"'#`) {
		return true
	}

	for _, hint := range elementHints {
		if _, ok := wordSet[hint]; ok {
			return true
		}
	}

	return false
}

// wordsOf splits text into a set of lowercase alphanumeric words.
func wordsOf(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	return set
}

func sharesWord(taskWords map[string]struct{}, text string) bool {
	if text == "" {
		return false
	}

	for w := range wordsOf(text) {
		if _, ok := taskWords[w]; ok {
			return true
		}
	}

	return false
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	return u.Host
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
