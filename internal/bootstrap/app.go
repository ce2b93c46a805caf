package bootstrap

import (
	"browser-agent/internal/ai"
	"browser-agent/internal/browser"
	"browser-agent/internal/config"
	"browser-agent/internal/console"
	"browser-agent/internal/escalation"
	"browser-agent/internal/ports"
	"browser-agent/internal/usecase"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.Browser))),
			fx.Annotate(ai.NewClient, fx.As(new(ports.ModelClient))),
			newEscalator,

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			runConsole,
		),

		// First start may download browser binaries.
		fx.StartTimeout(2*time.Minute),
	)
}

func newEscalator(config *config.Config, logger *zap.Logger) ports.Escalator {
	switch config.AgentConfig.EscalationMode {
	case "abort":
		return escalation.NewAbortPolicy(logger)
	case "skip":
		return escalation.NewSkipPolicy(logger)
	default:
		return escalation.NewConsole(escalation.ConsoleParams{Logger: logger})
	}
}
