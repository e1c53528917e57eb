package utils

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// InternalErrorMessage is the only message a 5xx response ever carries
const InternalErrorMessage = "Internal server error"

// AppError is an error that knows which HTTP status it maps to and
// what message is safe to show the caller
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(status int, message string, err error) *AppError {
	return &AppError{Status: status, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrBadRequest)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, ErrForbidden)
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

// Internal wraps an unexpected failure. The wrapped error is for logs only.
func Internal(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, InternalErrorMessage, err)
}

// StatusFor maps an error onto an HTTP status code
func StatusFor(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}

	var uploadErr *FileUploadError
	if errors.As(err, &uploadErr) {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to the caller.
// Anything that maps to a 5xx collapses to InternalErrorMessage.
func PublicMessage(err error) string {
	if StatusFor(err) >= http.StatusInternalServerError {
		return InternalErrorMessage
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	var uploadErr *FileUploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Message
	}

	return http.StatusText(StatusFor(err))
}
