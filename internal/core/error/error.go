package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "key not found"
	// NotFoundMessage describes a missing or expired session.
	NotFoundMessage = "session not found"
	// CityRequiredMessage describes a product search attempted without a
	// resolved delivery location.
	CityRequiredMessage = "city required"
	// InvalidConfigMessage describes a store or client built from an
	// incomplete configuration.
	InvalidConfigMessage = "invalid configuration"
)

// Sentinel errors for the conditions callers branch on.
var (
	ErrNotFound      = New(nil, http.StatusNotFound, NotFoundMessage)
	ErrCityRequired  = New(nil, http.StatusUnprocessableEntity, CityRequiredMessage)
	ErrInvalidConfig = New(nil, http.StatusInternalServerError, InvalidConfigMessage)
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or an AppError
// with the same status and message.
func (e *AppError) Is(target error) bool {
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Message == t.Message
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if e.Err != nil && errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
