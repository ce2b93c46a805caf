package escalation

import (
	"browser-agent/internal/entity"
	"browser-agent/pkg/logg"
	"context"

	"go.uber.org/zap"
)

// AbortPolicy fails the task at the first step that survives its retry.
// Suited to unattended runs where nobody is at the keyboard.
type AbortPolicy struct {
	logger *zap.Logger
}

func NewAbortPolicy(logger *zap.Logger) *AbortPolicy {
	return &AbortPolicy{
		logger: logger.With(zap.String(logg.Layer, escalationLayer)),
	}
}

func (p *AbortPolicy) Ask(_ context.Context, esc entity.Escalation) (entity.EscalationDecision, error) {
	p.logger.Warn("Aborting on failed step",
		zap.Int(logg.Step, esc.StepIndex+1),
		zap.String("error", esc.Err),
	)

	return entity.EscalationDecision{Kind: entity.DecisionAbort}, nil
}

// SkipPolicy records the failure and presses on with the rest of the plan.
type SkipPolicy struct {
	logger *zap.Logger
}

func NewSkipPolicy(logger *zap.Logger) *SkipPolicy {
	return &SkipPolicy{
		logger: logger.With(zap.String(logg.Layer, escalationLayer)),
	}
}

func (p *SkipPolicy) Ask(_ context.Context, esc entity.Escalation) (entity.EscalationDecision, error) {
	p.logger.Warn("Skipping failed step",
		zap.Int(logg.Step, esc.StepIndex+1),
		zap.String("error", esc.Err),
	)

	return entity.EscalationDecision{Kind: entity.DecisionSkip}, nil
}
