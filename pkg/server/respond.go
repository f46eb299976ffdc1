package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rundemo/rundemo/pkg/failure"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// errorBody is the failure envelope shared by every endpoint.
type errorBody struct {
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}

// details returns the upstream text carried by err for the envelope's details
// field.
func details(err error) string {
	if err == nil {
		return ""
	}
	return failure.Cause(err)
}

// decodeJSON reads at most maxBodyBytes and decodes them into target. An empty
// body is allowed when allowEmpty is set and leaves target untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(target)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
