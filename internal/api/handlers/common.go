package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/fund-service/fund_service/pkg/errors"
	"github.com/fund-service/fund_service/pkg/logger"
	"github.com/fund-service/fund_service/pkg/tracing"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// requestLogger returns the request-scoped logger set by the middleware
func requestLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if rl, ok := l.(*logger.Logger); ok {
			return rl
		}
	}
	return fallback
}

// respondError sends a standardized error response
func respondError(c *gin.Context, status int, code, message string, details map[string]string) {
	c.JSON(status, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: getRequestID(c),
		TraceID:   tracing.GetTraceIDFromContext(c.Request.Context()),
	})
}

// respondAppError maps an application error onto its HTTP status. Untyped
// errors and 5xx messages never reach the client.
func respondAppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("internal error", err)
	}
	status := apperrors.GetStatusCode(appErr)
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		message = "internal error"
	}
	respondError(c, status, appErr.Code, message, appErr.Details)
}

func respondBadRequest(c *gin.Context, message string) {
	respondAppError(c, apperrors.NewValidationError(message))
}

// parseFundID reads the :id path parameter
func parseFundID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid fund id")
		return uuid.Nil, false
	}
	return id, true
}
