package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/guibarbosadev/focus-badge/pkg/errors"
	"github.com/guibarbosadev/focus-badge/pkg/logger"
	"github.com/guibarbosadev/focus-badge/pkg/validator"
)

// ErrorBody is the JSON body written for every failed request.
type ErrorBody struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError converts err into an ErrorBody. AppError messages and details are
// passed through; sentinel errors get a generic message for their class.
// Server errors are logged with the request-scoped logger when one is present
// and never expose the underlying cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	body := ErrorBody{
		Error:     "Internal server error",
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		body.Error = appErr.Message
		body.Details = appErr.Details
	case errors.Is(err, apperrors.ErrNotFound):
		body.Error = "Not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		body.Error = "Already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		body.Error = "Invalid input"
	case errors.Is(err, apperrors.ErrUnauthorized):
		body.Error = "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		body.Error = "Forbidden"
	}

	if status >= http.StatusInternalServerError {
		body.Error = "Internal server error"
		body.Details = nil
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, body)
}

// WriteValidationError writes a 400 for a failed payload check. A
// *validator.ValidationError is itemized into details. An oversized body
// is a 413.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorBody{
		Error:     "Invalid payload",
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}

	if errors.Is(err, validator.ErrBodyTooLarge) {
		body.Error = "Payload too large"
		WriteJSON(w, http.StatusRequestEntityTooLarge, body)
		return
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		body.Details = valErr.Details()
	} else {
		body.Details = []string{err.Error()}
	}

	WriteJSON(w, http.StatusBadRequest, body)
}
