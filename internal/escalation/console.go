package escalation

import (
	"browser-agent/internal/entity"
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const escalationLayer = "Escalation"

// Console asks the operator at the terminal what to do with a failed plan
// step. Single-letter answers map to skip/retry/abort; any other text
// replaces the whole task.
type Console struct {
	logger *zap.Logger
	in     *bufio.Reader
	out    io.Writer
}

type ConsoleParams struct {
	fx.In

	Logger *zap.Logger
}

func NewConsole(params ConsoleParams) *Console {
	return &Console{
		logger: params.Logger.With(zap.String(logg.Layer, escalationLayer)),
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (c *Console) Ask(ctx context.Context, esc entity.Escalation) (entity.EscalationDecision, error) {
	const op = "Ask"

	c.logger.Info("Asking user for a decision",
		zap.String(logg.Operation, op),
		zap.Int(logg.Step, esc.StepIndex+1),
	)

	fmt.Fprintf(c.out, "\n⚠️  Step %d failed: %s\n", esc.StepIndex+1, esc.Step.Description)
	fmt.Fprintf(c.out, "   Error: %s\n", esc.Err)

	if esc.CurrentURL != "" {
		fmt.Fprintf(c.out, "   Current URL: %s\n", esc.CurrentURL)
	}

	if esc.ScreenshotPath != "" {
		fmt.Fprintf(c.out, "   Screenshot: %s\n", esc.ScreenshotPath)
	}

	fmt.Fprintln(c.out, "\nOptions: [s]kip / [r]etry / [a]bort, or type a replacement task")
	fmt.Fprint(c.out, "> ")

	type readResult struct {
		text string
		err  error
	}

	// Read on a goroutine so a cancelled task does not stay wedged on
	// stdin. An abandoned read drains with the next keystroke, which is
	// acceptable for a console app.
	lineCh := make(chan readResult, 1)

	go func() {
		text, err := c.in.ReadString('\n')
		lineCh <- readResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return entity.EscalationDecision{}, apperr.Wrap(op, apperr.CodeCancelledByUser, ctx.Err(), map[string]any{
			apperr.MetaReason: "cancelled_while_waiting_for_decision",
		})
	case line := <-lineCh:
		if line.err != nil && line.text == "" {
			return entity.EscalationDecision{}, apperr.Wrap(op, apperr.CodeInternal, line.err, map[string]any{
				apperr.MetaReason: "decision_input_unavailable",
			})
		}

		decision := parseDecision(line.text)

		c.logger.Info("Decision received", zap.String("decision", string(decision.Kind)))

		return decision, nil
	}
}

// parseDecision maps operator input to a decision. Empty input aborts, the
// conservative choice for someone who just hit enter.
func parseDecision(input string) entity.EscalationDecision {
	trimmed := strings.TrimSpace(input)

	switch strings.ToLower(trimmed) {
	case "s", "skip":
		return entity.EscalationDecision{Kind: entity.DecisionSkip}
	case "r", "retry":
		return entity.EscalationDecision{Kind: entity.DecisionRetry}
	case "a", "abort", "":
		return entity.EscalationDecision{Kind: entity.DecisionAbort}
	default:
		return entity.EscalationDecision{Kind: entity.DecisionReplace, NewTask: trimmed}
	}
}
