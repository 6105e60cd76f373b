package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"typed", NewConflictError("busy"), ErrorTypeConflict},
		{"wrapped typed", fmt.Errorf("load: %w", WrapNotFound(sql.ErrNoRows, CodeFundNotFound, "fund not found")), ErrorTypeNotFound},
		{"deadline", fmt.Errorf("poll: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"cancelled", context.Canceled, ErrorTypeInternal},
		{"no rows", sql.ErrNoRows, ErrorTypeNotFound},
		{"stale blockhash", errors.New("Blockhash not found"), ErrorTypeTransient},
		{"node behind", errors.New("RPC node is behind by 150 slots"), ErrorTypeTransient},
		{"unreachable", errors.New("dial tcp: network is unreachable"), ErrorTypeTransient},
		{"rate limited", errors.New("upstream rate limited"), ErrorTypeRateLimit},
		{"malformed", errors.New("malformed mint address"), ErrorTypeValidation},
		{"duplicate", errors.New("duplicate key value violates unique constraint"), ErrorTypeConflict},
		{"unknown", errors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestClassifyHTTPError(t *testing.T) {
	assert.Equal(t, ErrorType(""), ClassifyHTTPError(http.StatusOK))
	assert.Equal(t, ErrorTypeValidation, ClassifyHTTPError(http.StatusBadRequest))
	assert.Equal(t, ErrorTypeValidation, ClassifyHTTPError(http.StatusUnprocessableEntity))
	assert.Equal(t, ErrorTypeNotFound, ClassifyHTTPError(http.StatusNotFound))
	assert.Equal(t, ErrorTypeRateLimit, ClassifyHTTPError(http.StatusTooManyRequests))
	assert.Equal(t, ErrorTypeTimeout, ClassifyHTTPError(http.StatusGatewayTimeout))
	assert.Equal(t, ErrorTypeTransient, ClassifyHTTPError(http.StatusServiceUnavailable))
	assert.Equal(t, ErrorTypeExternal, ClassifyHTTPError(http.StatusInternalServerError))
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.True(t, ShouldRetry(context.DeadlineExceeded))
	assert.True(t, ShouldRetry(errors.New("connection reset by peer")))
	assert.False(t, ShouldRetry(errors.New("invalid slippage")))

	// a typed error decides for itself, whatever its message says
	rejected := WrapWithType(errors.New("quote timeout"), ErrorTypeValidation, CodeSwapRejected, "swap rejected")
	assert.False(t, ShouldRetry(rejected))
	assert.True(t, ShouldRetry(fmt.Errorf("submit: %w", NewTransientError(CodeSwapTransient, "gateway busy", nil))))
}

func TestWrapNotFound_MatchesSentinelByCode(t *testing.T) {
	sentinel := New(ErrorTypeNotFound, CodeFundNotFound, "fund not found")

	err := WrapNotFound(sql.ErrNoRows, CodeFundNotFound, "fund 42 not found")

	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, GetStatusCode(err))
	assert.False(t, err.Retryable)
}

func TestWrapTimeout(t *testing.T) {
	err := WrapTimeout(context.DeadlineExceeded, "reconcile fund 42")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, err.Retryable)
	assert.Equal(t, http.StatusGatewayTimeout, GetStatusCode(err))
	assert.Equal(t, "reconcile fund 42", err.Details["operation"])
	assert.Contains(t, err.Error(), "timed out")
}

func TestConstructorsCarryStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, GetStatusCode(NewValidationError("bad limit")))
	assert.Equal(t, http.StatusConflict, GetStatusCode(NewConflictError("busy")))
	assert.Equal(t, http.StatusServiceUnavailable, GetStatusCode(NewTransientError(CodeGatewayAPIError, "down", nil)))

	cause := errors.New("pq: connection refused")
	internal := NewInternalError("internal error", cause)
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(internal))
	assert.ErrorIs(t, internal, cause)
	assert.False(t, internal.Retryable)
}
