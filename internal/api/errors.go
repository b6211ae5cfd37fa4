package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrNotStarted is returned by HealthCheck before Start.
var ErrNotStarted = errors.New("web server not started")

// Error is the body of every non-2xx JSON response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeInternal    = "internal_error"
	ErrCodeUnavailable = "unavailable"
)

var errorCodes = map[int]string{
	http.StatusBadRequest:          ErrCodeBadRequest,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusInternalServerError: ErrCodeInternal,
	http.StatusServiceUnavailable:  ErrCodeUnavailable,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client may already be gone
	json.NewEncoder(w).Encode(v)
}

// writeError answers with an Error body. Statuses without a dedicated
// code fall back to internal_error.
func writeError(w http.ResponseWriter, status int, message string) {
	code, ok := errorCodes[status]
	if !ok {
		code = ErrCodeInternal
	}
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}
