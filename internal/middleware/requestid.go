package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/httputil"
)

const (
	// RequestIDKey is the gin context key for the request ID.
	RequestIDKey = httputil.RequestIDKey

	// RequestIDHeader carries the request ID on responses.
	RequestIDHeader = "X-Request-ID"

	// ClientRequestIDKey holds an X-Request-ID sent by the caller.
	ClientRequestIDKey = "client_request_id"
)

// RequestID assigns every request a fresh server-side UUID. A caller-supplied
// X-Request-ID is kept under ClientRequestIDKey for correlation only.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			if len(clientID) > 128 {
				clientID = clientID[:128]
			}

			c.Set(ClientRequestIDKey, clientID)
			log.WithFields(logrus.Fields{
				"request_id":        id,
				"client_request_id": clientID,
			}).Debug("client request id recorded")
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
