package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/spacetime/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeGraphError maps graph sentinel errors to HTTP statuses. Anything
// unrecognised is logged and reported as an internal error.
func writeGraphError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNodeNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(apperr.ErrNodeNotFound.Error()))
	case errors.Is(err, apperr.ErrUnknownArrow),
		errors.Is(err, apperr.ErrSelfLoop),
		errors.Is(err, apperr.ErrZeroWeight),
		errors.Is(err, apperr.ErrSTTypeOutOfRange),
		errors.Is(err, apperr.ErrInvalidOrientation),
		errors.Is(err, apperr.ErrInvalidDepth):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
