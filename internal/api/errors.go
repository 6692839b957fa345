package api

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/isomatch/internal/httputil"
)

// Error codes returned in the "code" field of error responses.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternalError    = "internal_error"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeValidationError  = "validation_error"
	ErrCodeInvalidReference = "invalid_reference"
	ErrCodeInvalidCount     = "invalid_count"
	ErrCodePayloadTooLarge  = "payload_too_large"
)

func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}
