package escalation

import (
	"browser-agent/internal/entity"
	"browser-agent/pkg/apperr"
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestConsole(t *testing.T, input string) (*Console, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}

	return &Console{
		logger: zaptest.NewLogger(t),
		in:     bufio.NewReader(strings.NewReader(input)),
		out:    out,
	}, out
}

func sampleEscalation() entity.Escalation {
	return entity.Escalation{
		Task:           "buy the blue shirt",
		Step:           entity.PlanStep{Kind: entity.KindClick, Description: "Press the buy button"},
		StepIndex:      2,
		Err:            "element not found",
		ScreenshotPath: "/tmp/step_failure_123.png",
		CurrentURL:     "https://shop.example.com/item",
	}
}

func TestParseDecision(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  entity.EscalationDecision
	}{
		{name: "s", input: "s\n", want: entity.EscalationDecision{Kind: entity.DecisionSkip}},
		{name: "skip", input: "skip\n", want: entity.EscalationDecision{Kind: entity.DecisionSkip}},
		{name: "skip uppercase", input: "SKIP\n", want: entity.EscalationDecision{Kind: entity.DecisionSkip}},
		{name: "r", input: "r\n", want: entity.EscalationDecision{Kind: entity.DecisionRetry}},
		{name: "retry", input: "retry\n", want: entity.EscalationDecision{Kind: entity.DecisionRetry}},
		{name: "a", input: "a\n", want: entity.EscalationDecision{Kind: entity.DecisionAbort}},
		{name: "abort", input: "abort\n", want: entity.EscalationDecision{Kind: entity.DecisionAbort}},
		{name: "bare enter aborts", input: "\n", want: entity.EscalationDecision{Kind: entity.DecisionAbort}},
		{name: "whitespace aborts", input: "   \n", want: entity.EscalationDecision{Kind: entity.DecisionAbort}},
		{
			name:  "free text replaces the task",
			input: "  go back and use the search box  \n",
			want:  entity.EscalationDecision{Kind: entity.DecisionReplace, NewTask: "go back and use the search box"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, parseDecision(tc.input))
		})
	}
}

func TestConsoleAskPrintsFailureAndReadsDecision(t *testing.T) {
	t.Parallel()

	console, out := newTestConsole(t, "s\n")

	decision, err := console.Ask(context.Background(), sampleEscalation())

	require.NoError(t, err)
	assert.Equal(t, entity.DecisionSkip, decision.Kind)

	printed := out.String()
	assert.Contains(t, printed, "Step 3 failed: Press the buy button")
	assert.Contains(t, printed, "Error: element not found")
	assert.Contains(t, printed, "Current URL: https://shop.example.com/item")
	assert.Contains(t, printed, "Screenshot: /tmp/step_failure_123.png")
	assert.Contains(t, printed, "[s]kip / [r]etry / [a]bort")
}

func TestConsoleAskOmitsEmptyContext(t *testing.T) {
	t.Parallel()

	console, out := newTestConsole(t, "a\n")

	esc := sampleEscalation()
	esc.CurrentURL = ""
	esc.ScreenshotPath = ""

	_, err := console.Ask(context.Background(), esc)

	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Current URL:")
	assert.NotContains(t, out.String(), "Screenshot:")
}

func TestConsoleAskReplacementTask(t *testing.T) {
	t.Parallel()

	console, _ := newTestConsole(t, "search for red shirts instead\n")

	decision, err := console.Ask(context.Background(), sampleEscalation())

	require.NoError(t, err)
	assert.Equal(t, entity.DecisionReplace, decision.Kind)
	assert.Equal(t, "search for red shirts instead", decision.NewTask)
}

func TestConsoleAskLastLineWithoutNewline(t *testing.T) {
	t.Parallel()

	// EOF right after the text still counts as an answer.
	console, _ := newTestConsole(t, "skip")

	decision, err := console.Ask(context.Background(), sampleEscalation())

	require.NoError(t, err)
	assert.Equal(t, entity.DecisionSkip, decision.Kind)
}

func TestConsoleAskInputUnavailable(t *testing.T) {
	t.Parallel()

	console, _ := newTestConsole(t, "")

	_, err := console.Ask(context.Background(), sampleEscalation())

	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
}

func TestConsoleAskCancelled(t *testing.T) {
	t.Parallel()

	// A reader that never delivers a line, as stdin does while nobody types.
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	console := &Console{
		logger: zaptest.NewLogger(t),
		in:     bufio.NewReader(blockingReader{release: release}),
		out:    &bytes.Buffer{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := console.Ask(ctx, sampleEscalation())

	require.Error(t, err)
	assert.Equal(t, apperr.CodeCancelledByUser, apperr.CodeOf(err))
}

type blockingReader struct {
	release chan struct{}
}

func (r blockingReader) Read([]byte) (int, error) {
	<-r.release

	return 0, io.EOF
}
