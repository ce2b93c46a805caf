package entity

// StatusSnapshot is a point-in-time view of the controller's session state,
// readable at any time via the status introspection operation.
type StatusSnapshot struct {
	Running    bool
	TaskID     string
	Task       string
	PlanSize   int
	PlanStep   int
	HistoryLen int
	LastAction string
}

// CompletionEvaluation is the model's post-hoc judgment of whether the
// original task is done, with the evidence it saw and suggested next steps.
type CompletionEvaluation struct {
	Completed bool     `json:"completed"`
	Evidence  string   `json:"evidence"`
	NextSteps []string `json:"next_steps"`
}

// Escalation describes a plan step that failed its retry and now needs a
// human (or policy) decision.
type Escalation struct {
	Task           string
	Step           PlanStep
	StepIndex      int
	Err            string
	ScreenshotPath string
	CurrentURL     string
}

// DecisionKind is the escalation outcome chosen by the escalator.
type DecisionKind string

const (
	DecisionSkip    DecisionKind = "skip"
	DecisionRetry   DecisionKind = "retry"
	DecisionAbort   DecisionKind = "abort"
	DecisionReplace DecisionKind = "replace"
)

// EscalationDecision carries the chosen outcome; NewTask is set only for
// DecisionReplace and becomes a brand-new top-level task.
type EscalationDecision struct {
	Kind    DecisionKind
	NewTask string
}
