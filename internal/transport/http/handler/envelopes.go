package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solace-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Bearer  string `json:"Bearer,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CsrfEnvelope carries the raw double-submit secret for the client to echo
// back in the X-CSRF-Token header.
type CsrfEnvelope struct {
	CsrfToken string `json:"csrf_token"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors onto HTTP status codes. Anything
// unmatched is an internal error and leaks no detail to the client.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidToken.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad request")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many requests")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
