// Package httputil provides the JSON error envelope shared by the API
// handlers and the middleware chain.
package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/isomatch/internal/metrics"
)

// RequestIDKey is the gin context key holding the server-assigned request ID.
const RequestIDKey = "request_id"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError counts the error by code, writes the envelope and aborts the
// request.
func RespondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()

	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}
