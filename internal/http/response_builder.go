package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON renders v with the given status. Encoding failures are logged,
// the status line has already been sent at that point.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response",
			"url", r.URL.Path, "error", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses: validation,
// domain and insufficient-funds errors are the caller's fault (400), missing
// entities are 404, anything else is a 500 with a generic body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *core.ValidationError
		notFoundErr     *core.NotFoundError
		domainErr       *core.DomainError
		insufficientErr *core.InsufficientFundsError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.As(err, &domainErr):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: domainErr.Error()})
	case errors.As(err, &insufficientErr):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: insufficientErr.Error()})
	case errors.As(err, &notFoundErr):
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: notFoundErr.Error()})
	default:
		slog.ErrorContext(r.Context(), "Unhandled error",
			"url", r.URL.Path, "method", r.Method, "error", err)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
