package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// errorResponse is the JSON body returned for every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
	Count int    `json:"count,omitempty"`
}

// writeError maps domain errors to HTTP statuses. Anything unrecognized is a
// 500, remote failures are a 502 so callers can tell our bug from a backend
// outage.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		nf *domain.NotFoundError
		ae *domain.AuthError
		re *domain.RemoteError
	)

	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		resp.Field = ve.Field
	case errors.As(err, &ae):
		status = http.StatusUnauthorized
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.As(err, &ce):
		status = http.StatusConflict
		resp.Kind = string(ce.Kind)
		resp.Count = ce.Count
	case errors.As(err, &re):
		status = http.StatusBadGateway
		logger.Error("backend failure", slog.String("error", err.Error()))
	default:
		logger.Error("unhandled error", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
