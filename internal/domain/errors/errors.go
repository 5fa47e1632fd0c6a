package errors

import (
	"net/http"

	"pawtrack/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// Is matches on the business error code, so a WithDetails copy still
// compares equal to its predefined parent under errors.Is.
func (e *BaseError) Is(target error) bool {
	var other *BaseError
	if !errors.As(target, &other) {
		return false
	}

	return e.errorCode == other.errorCode
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// ErrSessionNotFound is returned when the registry has no session for the ID.
	ErrSessionNotFound = NewBaseError(http.StatusNotFound, "SESSION_NOT_FOUND", "Walk session not found", "")

	// ErrSessionNotActive is returned when a sample arrives for a session
	// that is not InProgress.
	ErrSessionNotActive = NewBaseError(http.StatusConflict, "SESSION_NOT_ACTIVE", "Walk session is not accepting locations", "")

	// ErrInvalidTransition is returned for an illegal lifecycle command.
	ErrInvalidTransition = NewBaseError(http.StatusConflict, "INVALID_TRANSITION", "Illegal session state transition", "")

	// ErrStartTooEarly is returned when start() is called before the grace window.
	ErrStartTooEarly = NewBaseError(http.StatusConflict, "START_TOO_EARLY", "Walk cannot start this far before its scheduled time", "")

	// ErrRouteFull is returned when the in-memory route bound is reached.
	ErrRouteFull = NewBaseError(http.StatusConflict, "ROUTE_FULL", "Walk route buffer is full", "")

	// ErrSessionExists is returned when creating a session whose ID is taken.
	ErrSessionExists = NewBaseError(http.StatusConflict, "SESSION_EXISTS", "Walk session already exists", "")

	// ErrUnauthorized is returned for missing or invalid credentials.
	ErrUnauthorized = NewBaseError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing credentials", "")
)
