package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"memoria/internal/core"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger(r.Context()).Warn("Cannot write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respond(w, r, status, errorResponse{Error: code, Message: message})
}

// fail maps engine errors to responses. Transient storage problems and
// request timeouts are reported as 503 so that clients retry.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		logger(r.Context()).Warn("Feed temporarily unavailable", "error", err)
		respondError(w, r, http.StatusServiceUnavailable, "unavailable", "feed is temporarily unavailable")
	case errors.Is(err, context.Canceled):
		logger(r.Context()).Debug("Request canceled", "error", err)
	default:
		logger(r.Context()).Error("Feed request failed", "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}
