package ai

import (
	"browser-agent/internal/config"
	"browser-agent/pkg/apperr"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	client := NewClient(Params{
		Config: &config.Config{
			AIConfig: &config.AIConfig{
				APIKey:         "test-key",
				Model:          "claude-sonnet-4-20250514",
				BaseURL:        srv.URL + "/", // trailing slash must not double up
				MaxTokens:      512,
				Temperature:    0.2,
				RequestTimeout: 5 * time.Second,
			},
		},
		Logger: zaptest.NewLogger(t),
	})

	// The server-bound client keeps connection cleanup tied to srv.Close.
	client.httpClient = srv.Client()

	return client
}

func textResponse(blocks ...string) string {
	type block struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}

	content := make([]block, 0, len(blocks))
	for _, b := range blocks {
		content = append(content, block{Type: "text", Text: b})
	}

	raw, _ := json.Marshal(map[string]any{
		"content":     content,
		"stop_reason": "end_turn",
	})

	return string(raw)
}

func TestChooseActionSendsAnthropicRequest(t *testing.T) {
	var gotPath string
	var gotHeaders http.Header
	var gotBody messagesRequest
	var decodeErr error

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		decodeErr = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(textResponse(`  {"kind": "click"}  `)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	text, err := client.ChooseAction(context.Background(), "click the button")

	require.NoError(t, err)
	require.NoError(t, decodeErr)
	assert.Equal(t, `{"kind": "click"}`, text, "surrounding whitespace is trimmed")

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", gotHeaders.Get("anthropic-version"))

	assert.Equal(t, "claude-sonnet-4-20250514", gotBody.Model)
	assert.Equal(t, 512, gotBody.MaxTokens)
	assert.InDelta(t, 0.2, gotBody.Temperature, 1e-9)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "click the button", gotBody.Messages[0].Content)
}

func TestChoosePlanConcatenatesTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "[{\"kind\": "},
				{"type": "tool_use"},
				{"type": "text", "text": "\"wait\"}]"}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	text, err := client.ChoosePlan(context.Background(), "plan the task")

	require.NoError(t, err)
	assert.Equal(t, `[{"kind": "wait"}]`, text)
}

func TestAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	_, err := client.ChooseAction(context.Background(), "anything")

	require.Error(t, err)
	assert.Equal(t, apperr.CodeAIError, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "rate_limit_error")
}

func TestEmptyCompletionIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content": [{"type": "tool_use"}], "stop_reason": "end_turn"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	_, err := client.ChooseAction(context.Background(), "anything")

	require.Error(t, err)
	assert.Equal(t, apperr.CodeAIError, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "empty_completion")
}

func TestMalformedResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("definitely not json"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	_, err := client.ChooseAction(context.Background(), "anything")

	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	client := newTestClient(t, srv)
	client.config.AIConfig.RequestTimeout = 20 * time.Millisecond

	_, err := client.ChooseAction(context.Background(), "anything")

	require.Error(t, err)
	assert.Equal(t, apperr.CodeAIError, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "context deadline exceeded")
}
