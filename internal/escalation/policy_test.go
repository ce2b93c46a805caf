package escalation

import (
	"browser-agent/internal/entity"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAbortPolicy(t *testing.T) {
	t.Parallel()

	policy := NewAbortPolicy(zaptest.NewLogger(t))

	decision, err := policy.Ask(context.Background(), sampleEscalation())

	require.NoError(t, err)
	assert.Equal(t, entity.DecisionAbort, decision.Kind)
	assert.Empty(t, decision.NewTask)
}

func TestSkipPolicy(t *testing.T) {
	t.Parallel()

	policy := NewSkipPolicy(zaptest.NewLogger(t))

	decision, err := policy.Ask(context.Background(), sampleEscalation())

	require.NoError(t, err)
	assert.Equal(t, entity.DecisionSkip, decision.Kind)
	assert.Empty(t, decision.NewTask)
}
