package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TenantIDKey is the gin context key holding the authenticated tenant.
const TenantIDKey = "tenant_id"

// authTimingFloor is the minimum duration of a rejected request, so valid and
// invalid keys cannot be told apart by latency.
const authTimingFloor = 50 * time.Millisecond

// TenantLookup resolves an API key to its tenant.
type TenantLookup interface {
	GetTenantByAPIKey(ctx context.Context, apiKey string) (string, error)
}

// AuthMiddleware authenticates requests by Bearer token. A nil guard disables
// lockout tracking.
func AuthMiddleware(lookup TenantLookup, log *logrus.Logger, guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			rejectUnauthorized(c, start, "missing or invalid authorization header")

			return
		}

		tenantID, err := lookup.GetTenantByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			log.WithFields(logrus.Fields{
				"client_ip":  c.ClientIP(),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
				"key_prefix": keyPrefix(apiKey),
			}).Warn("authentication failed: invalid api key")

			if guard != nil {
				guard.RecordFailure(apiKey)
			}

			rejectUnauthorized(c, start, "invalid api key")

			return
		}

		if guard != nil {
			guard.ResetKey(apiKey)
		}

		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

func rejectUnauthorized(c *gin.Context, start time.Time, message string) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}

	respondError(c, http.StatusUnauthorized, "unauthorized", message)
}

// ExtractBearerToken returns the API key from the Authorization header, or "".
func ExtractBearerToken(c *gin.Context) string {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return ""
	}

	return token
}

// keyPrefix returns at most the first 4 characters of key for logging.
func keyPrefix(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}

	return key
}
