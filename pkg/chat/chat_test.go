package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rundemo/rundemo/pkg/failure"
	"github.com/rundemo/rundemo/pkg/models"
)

func testConfig(url string) Config {
	return Config{
		URL:          url,
		Model:        "gpt-3.5-turbo",
		MaxTokens:    150,
		Temperature:  0.7,
		SystemPrompt: "be brief",
	}
}

func TestComplete(t *testing.T) {
	var got models.ChatCompletionRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(models.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: "gpt-3.5-turbo-0125",
			Choices: []models.Choice{
				{Message: models.ChatMessage{Role: "assistant", Content: "hi"}, FinishReason: "stop"},
			},
			Usage: &models.Usage{PromptTokens: 20, CompletionTokens: 1, TotalTokens: 21},
		})
	}))
	defer upstream.Close()

	c := New(testConfig(upstream.URL), upstream.Client())
	reply, err := c.Complete(context.Background(), "sk-test", "hello there")
	require.NoError(t, err)

	assert.Equal(t, "hi", reply.Text)
	assert.Equal(t, "gpt-3.5-turbo-0125", reply.Model)
	require.NotNil(t, reply.Usage)
	assert.Equal(t, 21, reply.Usage.TotalTokens)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.ChatMessage{Role: "system", Content: "be brief"}, got.Messages[0])
	assert.Equal(t, models.ChatMessage{Role: "user", Content: "hello there"}, got.Messages[1])
	assert.Equal(t, 150, *got.MaxTokens)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)
	assert.False(t, got.Stream)
}

func TestCompleteEmpty(t *testing.T) {
	tests := map[string]models.ChatCompletionResponse{
		"no choices":    {Model: "m"},
		"empty content": {Model: "m", Choices: []models.Choice{{Message: models.ChatMessage{Role: "assistant"}}}},
	}
	for name, resp := range tests {
		t.Run(name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(resp)
			}))
			defer upstream.Close()

			_, err := New(testConfig(upstream.URL), upstream.Client()).Complete(context.Background(), "sk", "hello")
			assert.ErrorIs(t, err, failure.ErrEmptyCompletion)
		})
	}
}

func TestCompleteClassifiesUpstreamErrors(t *testing.T) {
	tests := []struct {
		status  int
		message string
		want    error
	}{
		{http.StatusUnauthorized, "Incorrect API key provided: sk-****", failure.ErrInvalidCredential},
		{http.StatusTooManyRequests, "You exceeded your current quota, please check your plan and billing details.", failure.ErrQuotaExceeded},
		{http.StatusTooManyRequests, "Rate limit reached for gpt-3.5-turbo", failure.ErrRateLimited},
		{http.StatusInternalServerError, "The server had an error while processing your request.", failure.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				var e models.ErrorResponse
				e.Error.Message = tt.message
				_ = json.NewEncoder(w).Encode(e)
			}))
			defer upstream.Close()

			_, err := New(testConfig(upstream.URL), upstream.Client()).Complete(context.Background(), "sk", "hello")
			require.Error(t, err)
			assert.Equal(t, tt.want, failure.Kind(err))
			assert.Contains(t, failure.Cause(err), tt.message)
		})
	}
}

func TestCompleteSingleAttempt(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	_, err := New(testConfig(upstream.URL), upstream.Client()).Complete(context.Background(), "sk", "hello")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCompleteRejectsEmptyMessage(t *testing.T) {
	_, err := New(testConfig("http://127.0.0.1:0"), nil).Complete(context.Background(), "sk", "")
	assert.ErrorIs(t, err, failure.ErrInvalidArgument)
}
