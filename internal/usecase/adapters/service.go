package adapters

import (
	"browser-agent/internal/entity"
	"context"
)

// TaskService runs natural-language tasks end to end. ExecuteTask never
// returns a Go error: every failure is folded into the ActionResult so the
// caller has a single shape to handle.
type TaskService interface {
	ExecuteTask(ctx context.Context, task string) entity.ActionResult
	EvaluateCompletion(ctx context.Context, task string, result entity.ActionResult) entity.CompletionEvaluation
	Status() entity.StatusSnapshot
	History() []entity.HistoryEntry
}

// ContextService captures the current page as structured context.
type ContextService interface {
	Capture(ctx context.Context) entity.PageContext
}

// BrowserService is the small slice of browser control the outer surfaces
// need directly (diagnostics, manual screenshots).
type BrowserService interface {
	CurrentURL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	IsReady() bool
}
