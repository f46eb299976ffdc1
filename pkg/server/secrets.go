package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rundemo/rundemo/pkg/failure"
)

const (
	hintStoreUnavailable = "This typically works when deployed to Cloud Run with proper IAM permissions"
	hintMissingProject   = "Set GOOGLE_CLOUD_PROJECT or GCP_PROJECT environment variable"
)

type secretStatus struct {
	Status          string   `json:"status"`
	Message         string   `json:"message"`
	ProjectID       string   `json:"projectId"`
	IsAuthenticated bool     `json:"isAuthenticated"`
	Tips            []string `json:"tips"`
}

type secretValue struct {
	Success     bool   `json:"success"`
	SecretName  string `json:"secretName"`
	SecretValue string `json:"secretValue"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
	Note        string `json:"note"`
}

type createSecretRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type createSecretResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	SecretName  string `json:"secretName"`
	VersionName string `json:"versionName"`
}

func (s *Server) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		project := s.secrets.Project()
		if project == "" {
			project = "not-set"
		}
		writeJSON(w, http.StatusOK, secretStatus{
			Status:          "ready",
			Message:         "Secret Manager API is available. Pass ?name=SECRET_NAME to retrieve a secret.",
			ProjectID:       project,
			IsAuthenticated: s.cfg.IsAuthenticated(),
			Tips: []string{
				`Create a secret: gcloud secrets create demo-secret --data-file=- <<< "my-secret-value"`,
				"Grant access: gcloud secrets add-iam-policy-binding demo-secret --member=serviceAccount:YOUR_SERVICE_ACCOUNT --role=roles/secretmanager.secretAccessor",
				"Access secret: GET /secrets?name=demo-secret",
			},
		})
		return
	}

	v, err := s.secrets.Access(r.Context(), name)
	if err != nil {
		s.logger.Error().Err(err).Str("secret", name).Msg("access secret")
		status, body := accessFailure(name, err)
		writeError(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, secretValue{
		Success:     true,
		SecretName:  name,
		SecretValue: v.Payload,
		Version:     v.Version,
		Timestamp:   now(),
		Note:        "In production, never expose secret values in API responses!",
	})
}

func accessFailure(name string, err error) (int, errorBody) {
	switch {
	case errors.Is(err, failure.ErrUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: "Secret Manager not available", Hint: hintStoreUnavailable}
	case errors.Is(err, failure.ErrUnconfigured):
		return http.StatusBadRequest, errorBody{Error: "Project ID not found", Hint: hintMissingProject}
	case errors.Is(err, failure.ErrNotFound):
		return http.StatusInternalServerError, errorBody{
			Error:   fmt.Sprintf("Secret '%s' not found", name),
			Hint:    fmt.Sprintf(`Create it with: gcloud secrets create %s --data-file=- <<< "your-secret-value"`, name),
			Details: details(err),
		}
	case errors.Is(err, failure.ErrPermissionDenied):
		return http.StatusInternalServerError, errorBody{
			Error:   "Permission denied",
			Hint:    "Grant the Cloud Run service account access to Secret Manager",
			Details: details(err),
		}
	case errors.Is(err, failure.ErrAuthFailure):
		return http.StatusInternalServerError, errorBody{
			Error:   "Authentication not configured",
			Hint:    "This works when deployed to Cloud Run. For local testing, set up Application Default Credentials",
			Details: details(err),
		}
	default:
		return http.StatusInternalServerError, errorBody{Error: "Failed to access secret", Details: details(err)}
	}
}

func (s *Server) handleCreateSecret(w http.ResponseWriter, r *http.Request) {
	var req createSecretRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body", Details: err.Error()})
		return
	}
	if req.Name == "" || req.Value == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Both name and value are required"})
		return
	}

	created, err := s.secrets.Create(r.Context(), req.Name, req.Value)
	if err != nil {
		s.logger.Error().Err(err).Str("secret", req.Name).Msg("create secret")
		status, body := createFailure(req.Name, err)
		writeError(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, createSecretResponse{
		Success:     true,
		Message:     fmt.Sprintf("Secret '%s' created successfully", req.Name),
		SecretName:  created.SecretName,
		VersionName: created.VersionName,
	})
}

func createFailure(name string, err error) (int, errorBody) {
	switch {
	case errors.Is(err, failure.ErrUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: "Secret Manager not available", Hint: hintStoreUnavailable}
	case errors.Is(err, failure.ErrUnconfigured):
		return http.StatusBadRequest, errorBody{Error: "Project ID not found", Hint: hintMissingProject}
	case errors.Is(err, failure.ErrConflict):
		return http.StatusConflict, errorBody{
			Error: fmt.Sprintf("Secret '%s' already exists", name),
			Hint:  "Use a different name or delete the existing secret first",
		}
	default:
		return http.StatusInternalServerError, errorBody{Error: "Failed to create secret", Details: details(err)}
	}
}
