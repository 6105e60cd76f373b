package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"

	// ErrorTypeValidation represents input validation errors
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict represents resource conflict errors
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeExternal represents external service errors
	ErrorTypeExternal ErrorType = "external"

	// ErrorTypeTransient represents transient errors that can be retried
	ErrorTypeTransient ErrorType = "transient"
)

// AppError represents an application error with additional context
type AppError struct {
	Type       ErrorType         `json:"type"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Err        error             `json:"-"`
	Retryable  bool              `json:"retryable"`
	StatusCode int               `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Common error instances
var (
	ErrInternal = &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeInternalError,
		Message:    "An internal error occurred",
		StatusCode: 500,
	}

	ErrValidation = &AppError{
		Type:       ErrorTypeValidation,
		Code:       CodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Type:       ErrorTypeNotFound,
		Code:       CodeNotFound,
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrConflict = &AppError{
		Type:       ErrorTypeConflict,
		Code:       CodeConflict,
		Message:    "Resource conflict",
		StatusCode: 409,
	}

	ErrRateLimit = &AppError{
		Type:       ErrorTypeRateLimit,
		Code:       CodeRateLimit,
		Message:    "Rate limit exceeded",
		StatusCode: 429,
		Retryable:  true,
	}

	ErrTimeout = &AppError{
		Type:       ErrorTypeTimeout,
		Code:       CodeTimeout,
		Message:    "Request timeout",
		StatusCode: 504,
		Retryable:  true,
	}

	ErrExternalService = &AppError{
		Type:       ErrorTypeExternal,
		Code:       CodeExternalServiceError,
		Message:    "External service error",
		StatusCode: 502,
		Retryable:  true,
	}

	// ErrFundLocked is returned when another reconciliation holds the fund
	ErrFundLocked = &AppError{
		Type:       ErrorTypeConflict,
		Code:       CodeFundLocked,
		Message:    "Fund is already being reconciled",
		StatusCode: 409,
	}
)

// New creates a new AppError
func New(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:      errType,
		Code:      code,
		Message:   message,
		Retryable: IsTransient(errType),
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetType returns the error type
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetCode returns the error code
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode != 0 {
			return appErr.StatusCode
		}
		switch appErr.Type {
		case ErrorTypeValidation:
			return 400
		case ErrorTypeNotFound:
			return 404
		case ErrorTypeConflict:
			return 409
		case ErrorTypeRateLimit:
			return 429
		case ErrorTypeTimeout:
			return 504
		case ErrorTypeExternal, ErrorTypeTransient:
			return 502
		}
	}
	return 500
}
