package usecase

import (
	"browser-agent/internal/entity"
	"browser-agent/internal/usecase/adapters"
)

// serviceFactory wires the pipeline once so the controller and the context
// service share the same probe and the same history ring.
type serviceFactory struct {
	deps       Params
	probe      *Probe
	controller *Controller
}

func newServiceFactory(deps Params) *serviceFactory {
	history := entity.NewHistory(deps.Config.AgentConfig.HistorySize)

	probe := NewProbe(ProbeParams{
		Config:  deps.Config,
		Logger:  deps.Logger,
		Browser: deps.Browser,
	})

	analyzer := NewAnalyzer(AnalyzerParams{
		Config: deps.Config,
		Logger: deps.Logger,
		Model:  deps.Model,
	})

	planner := NewPlanner(PlannerParams{
		Config:  deps.Config,
		Logger:  deps.Logger,
		Model:   deps.Model,
		History: history,
	})

	executor := NewExecutor(ExecutorParams{
		Config:  deps.Config,
		Logger:  deps.Logger,
		Browser: deps.Browser,
	})

	controller := NewController(ControllerParams{
		Config:    deps.Config,
		Logger:    deps.Logger,
		Probe:     probe,
		Analyzer:  analyzer,
		Planner:   planner,
		Executor:  executor,
		Browser:   deps.Browser,
		Model:     deps.Model,
		Escalator: deps.Escalator,
		History:   history,
	})

	return &serviceFactory{
		deps:       deps,
		probe:      probe,
		controller: controller,
	}
}

func (f *serviceFactory) CreateTaskService() adapters.TaskService {
	return f.controller
}

func (f *serviceFactory) CreateContextService() adapters.ContextService {
	return f.probe
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}
