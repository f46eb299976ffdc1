package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rundemo/rundemo/pkg/failure"
	"github.com/rundemo/rundemo/pkg/models"
	"github.com/rundemo/rundemo/pkg/stress"
)

type stressRequest struct {
	Iterations json.RawMessage `json:"iterations"`
}

type stressResponse struct {
	models.StressResult
	Service  string `json:"service"`
	Revision string `json:"revision"`
}

func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	var req stressRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body", Details: err.Error()})
		return
	}

	n, err := stress.ParseIterations(req.Iterations, s.cfg.Stress.DefaultIterations, s.cfg.Stress.MaxIterations)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid iterations", Details: details(err)})
		return
	}

	res, err := s.runStress(n)
	if err != nil {
		s.logger.Error().Err(err).Int("iterations", n).Msg("stress run")
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Stress test failed", Details: details(err)})
		return
	}

	s.metrics.StressRuns.Add(r.Context(), 1)
	s.metrics.StressIteration.Add(r.Context(), int64(res.Iterations))

	writeJSON(w, http.StatusOK, stressResponse{
		StressResult: res,
		Service:      orLocal(s.cfg.Deployment.Service),
		Revision:     orLocal(s.cfg.Deployment.Revision),
	})
}

// runStress converts a panic in the workload into an error.
func (s *Server) runStress(n int) (res models.StressResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = failure.Wrap("stress", failure.ErrUnknown, errors.New(fmt.Sprint(rec)))
		}
	}()
	return s.stress.Run(n), nil
}
