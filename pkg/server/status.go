package server

import (
	"net/http"

	"github.com/rundemo/rundemo/pkg/models"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	KeyCache  models.CacheStats `json:"keyCache"`
}

type usageResponse struct {
	Summaries []models.UsageSummary `json:"summaries"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.info.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: now(),
		KeyCache:  s.keys.Stats(),
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, errorBody{Error: "Usage tracking is disabled"})
		return
	}
	summaries, err := s.tracker.Summary(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("usage summary")
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to read usage", Details: err.Error()})
		return
	}
	if summaries == nil {
		summaries = []models.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, usageResponse{Summaries: summaries})
}
