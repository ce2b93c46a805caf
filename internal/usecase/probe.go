package usecase

import (
	"browser-agent/internal/config"
	"browser-agent/internal/entity"
	"browser-agent/internal/ports"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	probeName   = "PageContextProbe"
	probeTracer = "usecase.probe"

	unknownURL   = "unknown"
	unknownTitle = "Unknown"

	defaultViewportWidth  = 1920
	defaultViewportHeight = 1080
)

// Probe snapshots observable page state into a PageContext. Every sub-probe
// is independently fault-tolerant: a failed field logs a warning and takes a
// documented default instead of aborting the capture.
type Probe struct {
	config  *config.Config
	logger  *zap.Logger
	browser ports.Browser
	tracer  trace.Tracer
}

type ProbeParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.Browser
}

func NewProbe(params ProbeParams) *Probe {
	return &Probe{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, probeName)),
		browser: params.Browser,
		tracer:  otel.Tracer(probeTracer),
	}
}

// Capture never fails: a top-level failure (no active page) is reported via
// the Error field with CurrentURL set to "unknown".
func (p *Probe) Capture(ctx context.Context) (pctx entity.PageContext) {
	const op = "Capture"
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op)
	defer func() {
		if pctx.Error != "" {
			step.End(errors.New(pctx.Error))

			return
		}

		step.End(nil)
	}()

	if !p.browser.IsReady() {
		logger.Error("Context capture failed, browser is not ready")

		return entity.PageContext{
			CurrentURL: unknownURL,
			Error:      "browser is not ready",
		}
	}

	url, err := p.browser.CurrentURL(ctx)
	if err != nil {
		logger.Error("Context capture failed", zap.Error(err))

		return entity.PageContext{
			CurrentURL: unknownURL,
			Error:      err.Error(),
		}
	}
	pctx.CurrentURL = url

	step.AddEvent("probing title")

	title, err := p.browser.Title(ctx)
	if err != nil {
		logger.Warn("Failed to get page title", zap.Error(err))
		title = unknownTitle
	}
	pctx.PageTitle = title

	viewport, err := p.browser.Viewport(ctx)
	if err != nil {
		logger.Warn("Failed to get viewport", zap.Error(err))
		viewport = entity.Viewport{Width: defaultViewportWidth, Height: defaultViewportHeight}
	}
	pctx.Viewport = viewport

	step.AddEvent("probing interactive elements")

	elements, err := p.browser.InteractiveElements(ctx, p.config.AgentConfig.ElementLimit)
	if err != nil {
		logger.Warn("Failed to get interactive elements", zap.Error(err))
		elements = []entity.ElementSummary{}
	}
	pctx.InteractiveElements = elements

	info, err := p.browser.PageInfo(ctx)
	if err != nil {
		logger.Warn("Failed to get page info", zap.Error(err))
		info = entity.PageInfo{}
	}
	pctx.PageInfo = info

	step.SetAttributes(
		attribute.String("url", pctx.CurrentURL),
		attribute.Int("elements", len(pctx.InteractiveElements)),
	)
	step.AddEvent("context captured")
	logger.Debug("Page context captured",
		zap.String(logg.URL, pctx.CurrentURL),
		zap.Int("elements", len(pctx.InteractiveElements)),
	)

	return pctx
}
