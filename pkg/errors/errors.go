package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error type surfaced at the HTTP boundary. Status drives the
// response code, Message the "error" field, and the wrapped error (when set)
// the "details" field.
type AppError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.Status
}

// Details returns the underlying error message, or "" when there is none.
func (e *AppError) Details() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func BadRequest(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message}
}

// Upstream wraps a failure from the Airmeet or DevRev API. Upstream failures
// are never retried and surface as 500s with the upstream message attached.
func Upstream(message string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// FromError normalizes any error into an AppError, defaulting to a 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
