// Package chat forwards a single user message to an OpenAI-compatible
// completion API.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rundemo/rundemo/pkg/failure"
	"github.com/rundemo/rundemo/pkg/models"
)

const completionsPath = "/v1/chat/completions"

// errorTable maps upstream error text to a failure kind.
var errorTable = failure.Table{
	{Substring: "API key", Kind: failure.ErrInvalidCredential},
	{Substring: "quota", Kind: failure.ErrQuotaExceeded},
	{Substring: "rate limit", Kind: failure.ErrRateLimited},
}

// Config holds the fixed request parameters.
type Config struct {
	URL          string
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// Reply is the extracted completion.
type Reply struct {
	Text  string
	Model string
	Usage *models.Usage
}

// Client calls the completion endpoint. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client. A nil httpClient selects one with an
// OpenTelemetry-instrumented transport.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// buildRequest composes the system instruction followed by the user's message.
func (c *Client) buildRequest(message string) models.ChatCompletionRequest {
	maxTokens := c.cfg.MaxTokens
	temperature := c.cfg.Temperature
	return models.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}
}

// Complete sends message and returns the first choice's text. It makes
// exactly one upstream attempt.
func (c *Client) Complete(ctx context.Context, apiKey, message string) (*Reply, error) {
	if message == "" {
		return nil, failure.Wrap("complete", failure.ErrInvalidArgument, fmt.Errorf("message is empty"))
	}

	body, err := json.Marshal(c.buildRequest(message))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	target, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid completion URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String()+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, failure.Wrap("complete", errorTable.Match(err.Error()), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		upstreamErr := upstreamError(resp.StatusCode, respBody)
		return nil, failure.Wrap("complete", errorTable.Match(upstreamErr.Error()), upstreamErr)
	}

	var out models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, failure.Wrap("complete", failure.ErrUnknown, fmt.Errorf("decode response: %w", err))
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, failure.Wrap("complete", failure.ErrEmptyCompletion, nil)
	}

	return &Reply{
		Text:  out.Choices[0].Message.Content,
		Model: out.Model,
		Usage: out.Usage,
	}, nil
}

// upstreamError prefers the provider's own error message over the raw body.
func upstreamError(code int, body []byte) error {
	var e models.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("%d %s", code, e.Error.Message)
	}
	text := string(body)
	if len(text) > 512 {
		text = text[:512]
	}
	return fmt.Errorf("%d %s: %s", code, http.StatusText(code), text)
}
