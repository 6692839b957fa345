package api

import (
	"context"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/middleware"
	"github.com/persistorai/isomatch/internal/ws"
)

// streamHandler upgrades an authenticated request to a WebSocket that
// receives the tenant's run events as they are recorded.
func streamHandler(log *logrus.Logger, hub *ws.Hub, corsOrigins []string, lookup middleware.TenantLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := getTenantID(c)
		if tenantID == "" {
			return
		}

		// CORS origins double as WebSocket origin patterns.
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Warn("websocket accept failed")

			return
		}

		client := ws.NewClient(hub, conn, tenantID, middleware.ExtractBearerToken(c), lookup)
		hub.Register(client)

		// The stream ends with the request or when the hub shuts down.
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		go func() {
			select {
			case <-hub.Done():
				cancel()
			case <-ctx.Done():
			}
		}()

		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
