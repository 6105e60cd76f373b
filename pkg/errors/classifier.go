package errors

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// messagePatterns map error text onto a type when nothing typed is left in
// the chain. Order matters: the first matching group wins.
var messagePatterns = []struct {
	errType  ErrorType
	patterns []string
}{
	{ErrorTypeTimeout, []string{"timeout", "deadline exceeded"}},
	{ErrorTypeTransient, []string{
		"connection refused", "connection reset", "broken pipe",
		"network is unreachable", "no route to host",
		"temporary failure", "service unavailable",
		// a stale or expired blockhash clears on resubmission
		"blockhash", "block height exceeded", "node is behind",
	}},
	{ErrorTypeRateLimit, []string{"rate limit", "too many requests"}},
	{ErrorTypeValidation, []string{"invalid", "malformed", "bad request"}},
	{ErrorTypeConflict, []string{"duplicate", "already exists", "conflict"}},
	{ErrorTypeNotFound, []string{"not found", "no such"}},
}

// ClassifyError classifies an error for retry and circuit breaker logic
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeInternal
	case errors.Is(err, sql.ErrNoRows):
		return ErrorTypeNotFound
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, sql.ErrTxDone):
		return ErrorTypeInternal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED:
			return ErrorTypeTransient
		case syscall.ETIMEDOUT:
			return ErrorTypeTimeout
		}
	}

	msg := strings.ToLower(err.Error())
	for _, group := range messagePatterns {
		for _, p := range group.patterns {
			if strings.Contains(msg, p) {
				return group.errType
			}
		}
	}
	return ErrorTypeInternal
}

// ClassifyHTTPError classifies a non-2xx upstream status
func ClassifyHTTPError(statusCode int) ErrorType {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ""
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusConflict:
		return ErrorTypeConflict
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorTypeValidation
	case statusCode == http.StatusBadGateway, statusCode == http.StatusServiceUnavailable:
		return ErrorTypeTransient
	case statusCode >= 500:
		return ErrorTypeExternal
	}
	return ErrorTypeInternal
}

// ShouldRetry reports whether another attempt may succeed. An AppError
// anywhere in the chain decides through its Retryable flag; anything else
// is classified.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return IsTransient(ClassifyError(err))
}

// IsCircuitBreakerError determines if an error should trip the circuit breaker
func IsCircuitBreakerError(err error) bool {
	switch ClassifyError(err) {
	case ErrorTypeTimeout, ErrorTypeTransient, ErrorTypeExternal:
		return true
	}
	return false
}
