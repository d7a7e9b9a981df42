package api

import (
	"encoding/json"
	"errors"
	"net/http"

	derrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	// Problems lists every validation failure
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeEngineError maps the error taxonomy to a status: refused transitions
// and store conflicts are 409, bad input is 422.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		invalid    *derrors.InvalidStateError
		conflict   *derrors.ConflictError
		rangeErr   *derrors.RangeError
		validation *derrors.ValidationError
	)
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &invalid):
		status, resp.Kind = http.StatusConflict, "invalid_state"
	case errors.As(err, &conflict):
		status, resp.Kind = http.StatusConflict, "conflict"
	case errors.As(err, &rangeErr):
		status, resp.Kind = http.StatusUnprocessableEntity, "range"
	case errors.As(err, &validation):
		status, resp.Kind = http.StatusUnprocessableEntity, "validation"
		resp.Problems = validation.Problems
	case errors.Is(err, storage.ErrNotFound):
		status, resp.Kind = http.StatusNotFound, "not_found"
	}
	writeJSON(w, status, resp)
}
