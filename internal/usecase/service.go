package usecase

import (
	"browser-agent/internal/config"
	"browser-agent/internal/ports"
	"browser-agent/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Tasks   adapters.TaskService
	Context adapters.ContextService
	Browser adapters.BrowserService
}

type Params struct {
	fx.In

	Logger    *zap.Logger
	Config    *config.Config
	Browser   ports.Browser
	Model     ports.ModelClient
	Escalator ports.Escalator
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Tasks:   factory.CreateTaskService(),
		Context: factory.CreateContextService(),
		Browser: factory.CreateBrowserService(),
	}
}
