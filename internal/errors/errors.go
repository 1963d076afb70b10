// Package errors defines the categorised application errors returned across stockperf.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorises an AppError
type ErrorType string

const (
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeStatistics ErrorType = "STATISTICS"
)

// ErrInsufficientData is returned by statistical routines given too few observations.
var ErrInsufficientData = errors.New("insufficient data")

// AppError is an error tagged with a category. Context carries structured
// details for logs and is nil until WithContext is used.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *AppError) Error() string {
	msg := "[" + string(e.Type) + "] " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext records a detail on the error and returns it for chaining
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// NewNetworkError is for failed or rejected provider requests
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{Type: ErrTypeNetwork, Message: message, Cause: cause}
}

// NewParsingError is for payloads that cannot be decoded
func NewParsingError(message string, cause error) *AppError {
	return &AppError{Type: ErrTypeParsing, Message: message, Cause: cause}
}

// NewStorageError is for files, caches and other sinks
func NewStorageError(message string, cause error) *AppError {
	return &AppError{Type: ErrTypeStorage, Message: message, Cause: cause}
}

func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrTypeValidation, Message: message}
}

// NewNotFoundError reports "<resource> not found"
func NewNotFoundError(resource string) *AppError {
	return &AppError{Type: ErrTypeNotFound, Message: resource + " not found"}
}

func NewConfigError(message string, cause error) *AppError {
	return &AppError{Type: ErrTypeConfig, Message: message, Cause: cause}
}

// NewStatisticsError is for a statistic that could not be computed
func NewStatisticsError(message string, cause error) *AppError {
	return &AppError{Type: ErrTypeStatistics, Message: message, Cause: cause}
}

// Insufficient wraps ErrInsufficientData with the observation counts involved.
func Insufficient(what string, have, need int) error {
	return fmt.Errorf("%s: have %d observations, need at least %d: %w", what, have, need, ErrInsufficientData)
}

// IsType reports whether any AppError in err's chain has the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == t {
			return true
		}
		err = appErr.Cause
	}
	return false
}
