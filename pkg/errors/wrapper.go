package errors

import (
	"net/http"
)

func newAppError(errType ErrorType, code, message string, status int, err error) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Err:        err,
		StatusCode: status,
		Retryable:  IsTransient(errType),
	}
}

// WrapWithType wraps err as an AppError of the given type. The HTTP status
// is left to GetStatusCode.
func WrapWithType(err error, errType ErrorType, code, message string) *AppError {
	return newAppError(errType, code, message, 0, err)
}

func WrapInternal(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, CodeInternalError, message, 0, err)
}

// WrapNotFound turns a store's missing-row error into a not-found error
// carrying code, so it matches any sentinel built with the same code.
func WrapNotFound(err error, code, message string) *AppError {
	return newAppError(ErrorTypeNotFound, code, message, 0, err)
}

func WrapExternal(err error, service, message string) *AppError {
	return newAppError(ErrorTypeExternal, CodeExternalServiceError, message, 0, err).
		WithDetail("service", service)
}

// WrapTimeout marks err as a deadline hit while running operation
func WrapTimeout(err error, operation string) *AppError {
	return newAppError(ErrorTypeTimeout, CodeTimeout, operation+" timed out", http.StatusGatewayTimeout, err).
		WithDetail("operation", operation)
}

// IsTransient reports whether errors of this type clear on their own
func IsTransient(errType ErrorType) bool {
	switch errType {
	case ErrorTypeTransient, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeExternal:
		return true
	}
	return false
}

func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, CodeValidationFailed, message, http.StatusBadRequest, nil)
}

func NewConflictError(message string) *AppError {
	return newAppError(ErrorTypeConflict, CodeConflict, message, http.StatusConflict, nil)
}

// NewInternalError hides err behind message; err is kept for logs only
func NewInternalError(message string, err error) *AppError {
	return newAppError(ErrorTypeInternal, CodeInternalError, message, http.StatusInternalServerError, err)
}

// NewTransientError creates an error that callers may retry
func NewTransientError(code, message string, err error) *AppError {
	return newAppError(ErrorTypeTransient, code, message, http.StatusServiceUnavailable, err)
}
