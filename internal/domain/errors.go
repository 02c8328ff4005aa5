package domain

import (
	"errors"
	"fmt"
)

// Domain-specific errors for better error handling and user feedback
var (
	// ErrLinkNotFound is returned when a short code doesn't exist or is inactive
	ErrLinkNotFound = errors.New("short link not found")

	// ErrLinkExpired is returned when resolving a link past its expiration
	ErrLinkExpired = errors.New("short link has expired")

	// ErrInvalidURL is returned when the provided URL is invalid
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrCodeTaken is returned when a custom code is already in use
	ErrCodeTaken = errors.New("short code already exists")

	// ErrCodeInvalid is returned when a short code has invalid shape or characters
	ErrCodeInvalid = errors.New("short code contains invalid characters")

	// ErrCodeSpaceExhausted is returned when the generator exhausts its retry budget
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")

	// ErrStoreUnavailable is returned when the record store times out or is unreachable
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrRateLimitExceeded is returned when rate limit is hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for better debugging
type AppError struct {
	Err        error  // Original error
	Message    string // User-friendly message
	StatusCode int    // HTTP status code
	Internal   bool   // Whether to log as internal error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Err:        ErrLinkNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Internal:   false,
	}
}

// NewValidationError creates a 400 validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidURL,
		Message:    message,
		StatusCode: 400,
		Internal:   false,
	}
}

// NewInternalError creates a 500 internal server error
func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "Internal server error occurred",
		StatusCode: 500,
		Internal:   true, // Log this error
	}
}
