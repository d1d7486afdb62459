package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//
//	{"error": "not_found", "message": "Todo with ID 12 not found"}
//
// plus a "field" key when one input field is to blame. The browser client
// shows "message" as-is.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/todo-tracker/internal/apperror"
)

// maxBodyBytes caps request bodies. The largest legitimate body (a todo with
// a 1000-character description) is far below this.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Input field at fault, if any
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body. Once Encode writes,
// the headers are sent and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads the request body into dst. A malformed body becomes a
// validation error so it maps to 400 like any other bad input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("", "request body must be valid JSON")
	}
	return nil
}

// errorKind maps a domain error to its HTTP status and machine-readable type.
//
// ERROR MAPPING:
//
//	ErrValidation, ErrDuplicateEmail, ErrInvalidCredentials → 400
//	ErrUnauthorized                                        → 401
//	ErrNotFound (absent OR owned by someone else)          → 404
//	anything else                                          → 500
//
// There is deliberately no 403: "exists but isn't yours" is a 404.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrDuplicateEmail):
		return http.StatusBadRequest, "duplicate_email"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusBadRequest, "invalid_credentials"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError translates err to an HTTP response.
//
// errors.Is() / errors.As() walk the whole %w chain, so
// fmt.Errorf("service/todo: getting 3: %w", apperror.NotFound(...)) still
// classifies as NotFound and still yields the AppError's message.
//
// Unknown errors are logged with the request id and answered with a generic
// 500. NEVER expose internal error text to the client: it may contain SQL,
// file paths, or driver details.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, kind := errorKind(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("requestID", chimiddleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// notFoundPath is used when a path id isn't a positive integer. It reads
// exactly like a NotFound for an id that doesn't exist.
func notFoundPath(resource, raw string) error {
	return &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: fmt.Sprintf("%s with ID %s not found", resource, raw),
	}
}
