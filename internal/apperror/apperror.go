// Package apperror defines the domain error taxonomy shared by the service,
// repository and handler layers.
//
// Every domain error is an *AppError wrapping one of the sentinel values
// below, so callers can classify failures with errors.Is while the handler
// still has a human-readable message to send back.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is returned both for rows that do not exist and for rows owned by
// another user. The message only echoes the id the caller already knows.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with ID %d not found", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateEmail reports a registration against an email that is already
// taken.
func DuplicateEmail() *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: "User with this email already exists.",
		Field:   "email",
	}
}

// InvalidCredentials is shared by "no such user" and "wrong password" so a
// login response never tells the caller which one happened.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid email or password.",
	}
}

// Unauthorized wraps a token failure. cause is kept in the chain for logging
// and errors.Is checks but is never shown to the client.
func Unauthorized(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUnauthorized, cause),
		Message: "valid authentication required",
	}
}
