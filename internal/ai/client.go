package ai

import (
	"browser-agent/internal/config"
	"browser-agent/pkg/apperr"
	"browser-agent/pkg/logg"
	"browser-agent/pkg/tracing"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	aiClientName     = "AIClient"
	aiTracer         = "ai.client"
	anthropicVersion = "2023-06-01"
	messagesPath     = "/v1/messages"
)

// Client talks to the Anthropic messages API. It returns the model's raw
// text; turning that text into actions or plans is the caller's concern.
type Client struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params Params) *Client {
	return &Client{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, aiClientName)),
		tracer:     otel.Tracer(aiTracer),
		httpClient: &http.Client{},
	}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *Client) ChooseAction(ctx context.Context, prompt string) (text string, err error) {
	const op = "ChooseAction"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("prompt_length", len(prompt)))
	defer func() {
		step.End(err)
	}()

	return c.complete(ctx, op, step, prompt)
}

func (c *Client) ChoosePlan(ctx context.Context, prompt string) (text string, err error) {
	const op = "ChoosePlan"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("prompt_length", len(prompt)))
	defer func() {
		step.End(err)
	}()

	return c.complete(ctx, op, step, prompt)
}

func (c *Client) complete(ctx context.Context, op string, step *tracing.Span, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.AIConfig.RequestTimeout)
	defer cancel()

	reqBody := messagesRequest{
		Model:       c.config.AIConfig.Model,
		MaxTokens:   c.config.AIConfig.MaxTokens,
		Temperature: c.config.AIConfig.Temperature,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	step.AddEvent("marshaling request")

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	url := strings.TrimRight(c.config.AIConfig.BaseURL, "/") + messagesPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.AIConfig.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	step.AddEvent("sending HTTP request")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason: "http_request_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", apperr.Wrap(op, apperr.CodeAIError, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body)), map[string]any{
			apperr.MetaReason: "api_error",
			apperr.MetaStage:  apperr.StageAI,
			"status_code":     httpResp.StatusCode,
		})
	}

	step.AddEvent("unmarshaling response")

	var resp messagesResponse

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	var sb strings.Builder
	for _, content := range resp.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeAIError, "empty_completion")
	}

	step.AddEvent("completion received")

	return text, nil
}
