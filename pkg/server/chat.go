package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rundemo/rundemo/pkg/chat"
	"github.com/rundemo/rundemo/pkg/failure"
	"github.com/rundemo/rundemo/pkg/models"
)

type chatRequest struct {
	Message any `json:"message"`
}

type chatResponse struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Model     string        `json:"model"`
	Usage     *models.Usage `json:"usage"`
	Timestamp string        `json:"timestamp"`
}

// fetchKey reads the completion API key from the secret store. It is the
// refresh function for the key cache.
func (s *Server) fetchKey(ctx context.Context) (string, error) {
	v, err := s.secrets.Access(ctx, s.cfg.Secrets.KeyName)
	if err != nil {
		return "", err
	}
	return v.Payload, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body", Details: err.Error()})
		return
	}
	message, ok := req.Message.(string)
	if !ok || message == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Message is required and must be a string"})
		return
	}

	apiKey, err := s.keys.GetOrFetch(r.Context(), s.fetchKey)
	if err != nil {
		s.logger.Error().Err(err).Str("secret", s.cfg.Secrets.KeyName).Msg("completion key unavailable")
		writeError(w, http.StatusServiceUnavailable, errorBody{
			Error: "OpenAI API key not available",
			Hint:  "Make sure " + s.cfg.Secrets.KeyName + " secret exists in Secret Manager with proper permissions",
		})
		return
	}

	reply, err := s.chat.Complete(r.Context(), apiKey, message)
	if err != nil {
		s.logger.Error().Err(err).Msg("chat completion failed")
		status, body := chatFailure(err)
		writeError(w, status, body)
		return
	}

	s.recordUsage(r.Context(), reply)

	writeJSON(w, http.StatusOK, chatResponse{
		Success:   true,
		Message:   reply.Text,
		Model:     reply.Model,
		Usage:     reply.Usage,
		Timestamp: now(),
	})
}

func chatFailure(err error) (int, errorBody) {
	switch {
	case errors.Is(err, failure.ErrInvalidArgument):
		return http.StatusBadRequest, errorBody{Error: "Message is required and must be a string"}
	case errors.Is(err, failure.ErrEmptyCompletion):
		return http.StatusInternalServerError, errorBody{Error: "No response generated from OpenAI"}
	case errors.Is(err, failure.ErrInvalidCredential):
		return http.StatusInternalServerError, errorBody{
			Error:   "Invalid OpenAI API key",
			Hint:    "Check that your OpenAI API key is valid and has sufficient credits",
			Details: details(err),
		}
	case errors.Is(err, failure.ErrQuotaExceeded):
		return http.StatusInternalServerError, errorBody{
			Error:   "OpenAI API quota exceeded",
			Hint:    "You have exceeded your OpenAI API usage limits",
			Details: details(err),
		}
	case errors.Is(err, failure.ErrRateLimited):
		return http.StatusInternalServerError, errorBody{
			Error:   "Rate limit exceeded",
			Hint:    "Too many requests. Please wait a moment before trying again",
			Details: details(err),
		}
	default:
		return http.StatusInternalServerError, errorBody{
			Error:   "Failed to process chat request",
			Details: details(err),
		}
	}
}

// recordUsage stores token counts for a successful completion. Failures are
// logged and otherwise ignored.
func (s *Server) recordUsage(ctx context.Context, reply *chat.Reply) {
	if s.tracker == nil || reply.Usage == nil {
		return
	}
	err := s.tracker.Record(ctx, models.UsageRecord{
		RequestID:        RequestIDFromContext(ctx),
		Model:            reply.Model,
		Revision:         orLocal(s.cfg.Deployment.Revision),
		PromptTokens:     reply.Usage.PromptTokens,
		CompletionTokens: reply.Usage.CompletionTokens,
		TotalTokens:      reply.Usage.TotalTokens,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("record usage")
	}
}
