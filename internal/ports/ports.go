package ports

import (
	"browser-agent/internal/entity"
	"context"
)

// Browser is the capability interface the core drives the page through.
// Selector-taking operations accept a `by` discriminator, one of css, xpath,
// id, name, tag, class, link_text, partial_link_text; implementations map it
// to native selector syntax and resolve elements with their own multi-strategy
// fallback before giving up.
type Browser interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool

	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Viewport(ctx context.Context) (entity.Viewport, error)
	InteractiveElements(ctx context.Context, limit int) ([]entity.ElementSummary, error)
	PageInfo(ctx context.Context) (entity.PageInfo, error)

	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, by, selector string) error
	Fill(ctx context.Context, by, selector, text string) error
	TextContent(ctx context.Context, by, selector string) (string, error)
	Attribute(ctx context.Context, by, selector, name string) (string, error)
	EvaluateScript(ctx context.Context, script string) (any, error)
	Screenshot(ctx context.Context, path string) error
	Reload(ctx context.Context) error
}

// ModelClient is the planning collaborator. Both calls return the model's
// raw JSON text; parse-or-fallback is the caller's concern. Implementations
// must honor the context deadline on their own I/O.
type ModelClient interface {
	ChooseAction(ctx context.Context, prompt string) (string, error)
	ChoosePlan(ctx context.Context, prompt string) (string, error)
}

// Escalator decides what to do with a plan step that failed its retry. The
// interactive implementation asks a human; policy implementations answer
// without one.
type Escalator interface {
	Ask(ctx context.Context, esc entity.Escalation) (entity.EscalationDecision, error)
}
