package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout     = 10 * time.Second
	readLimit        = 4096
	sendBuffer       = 256
	maxConnLifetime  = 4 * time.Hour
	keyCheckInterval = 15 * time.Minute
	keyCheckTimeout  = 10 * time.Second
	pingInterval     = 30 * time.Second
	pingTimeout      = 10 * time.Second
	maxMissedPongs   = int32(2)
)

// KeyValidator confirms an API key still maps to a tenant.
type KeyValidator interface {
	GetTenantByAPIKey(ctx context.Context, apiKey string) (string, error)
}

// Client is one subscriber connection.
type Client struct {
	TenantID string

	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	log         *logrus.Logger
	apiKey      string
	validator   KeyValidator
	closeOnce   sync.Once
	connectedAt time.Time
}

// NewClient wraps conn for tenantID. validator may be nil to skip periodic key checks.
func NewClient(hub *Hub, conn *websocket.Conn, tenantID, apiKey string, validator KeyValidator) *Client {
	return &Client{
		TenantID:    tenantID,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		log:         hub.log,
		apiKey:      apiKey,
		validator:   validator,
		connectedAt: time.Now(),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// trySend queues payload without blocking. It reports false when the buffer is full.
func (c *Client) trySend(payload []byte) (ok bool) {
	defer func() {
		// send may already be closed by the hub.
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// ReadPump handles subscribe requests until the connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown.
	}()

	c.conn.SetReadLimit(readLimit)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.WithField("status", status).Debug("stream client disconnected")
			}

			return
		}

		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg SubscribeMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "subscribe" {
		return
	}

	if c.hub.Replay(c, msg.LastSeq) {
		return
	}

	reset, err := json.Marshal(ResetMsg{Type: TypeReset, Reason: "requested frames are no longer buffered"})
	if err != nil {
		return
	}

	c.trySend(reset)
}

// WritePump writes queued frames, pings the peer and closes the connection
// when its lifetime ends or the API key stops validating.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown.

	lifetime := time.NewTimer(time.Until(c.connectedAt.Add(maxConnLifetime)))
	defer lifetime.Stop()

	keyCheck := time.NewTicker(keyCheckInterval)
	defer keyCheck.Stop()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	var missed atomic.Int32

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "closed by server") //nolint:errcheck // best-effort.

				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("stream write failed")

				return
			}
		case <-ping.C:
			if c.pingMissed(ctx, &missed) {
				return
			}
		case <-keyCheck.C:
			if !c.keyStillValid(ctx) {
				c.conn.Close(websocket.StatusPolicyViolation, "authentication expired") //nolint:errcheck // best-effort.

				return
			}
		case <-lifetime.C:
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // best-effort.

			return
		}
	}
}

// pingMissed reports true once maxMissedPongs pings in a row have failed.
func (c *Client) pingMissed(ctx context.Context, missed *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := c.conn.Ping(pingCtx)
	cancel()

	if err == nil {
		missed.Store(0)

		return false
	}

	return missed.Add(1) >= maxMissedPongs
}

func (c *Client) keyStillValid(ctx context.Context) bool {
	if c.validator == nil {
		return true
	}

	checkCtx, cancel := context.WithTimeout(ctx, keyCheckTimeout)
	defer cancel()

	tenantID, err := c.validator.GetTenantByAPIKey(checkCtx, c.apiKey)
	if err != nil || tenantID != c.TenantID {
		c.log.WithField("tenant_id", c.TenantID).Info("closing stream: api key no longer valid")

		return false
	}

	return true
}
