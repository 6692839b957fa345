// Package ws streams run events to WebSocket subscribers, scoped per tenant.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/metrics"
	"github.com/persistorai/isomatch/internal/models"
)

// Connection and channel limits.
const (
	maxClients          = 1000
	maxClientsPerTenant = 50
	publishBuffer       = 256
	registerBuffer      = 64
	drainTimeout        = 3 * time.Second
)

type tenantFrame struct {
	tenantID string
	payload  []byte
}

// Hub tracks connected clients and fans frames out to them. The client set is
// only touched from the Run goroutine.
type Hub struct {
	clients     map[*Client]struct{}
	perTenant   map[string]int
	register    chan *Client
	unregister  chan *Client
	frames      chan tenantFrame
	done        chan struct{}
	clientCount atomic.Int64
	log         *logrus.Logger
	seq         *sequence
	replay      *replayBuffer
}

// NewHub creates a Hub. Start it with Run.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		perTenant:  make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		frames:     make(chan tenantFrame, publishBuffer),
		done:       make(chan struct{}),
		log:        log,
		seq:        newSequence(),
		replay:     newReplayBuffer(replayMaxFrames, replayTTL),
	}
}

// Run serves registrations and frames until ctx is cancelled, then tells every
// client the server is going away and closes them.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drain()

			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
			}
		case f := <-h.frames:
			for c := range h.clients {
				if c.TenantID != f.tenantID {
					continue
				}

				select {
				case c.send <- f.payload:
				default:
					// Slow consumer; it can reconnect and replay.
					h.remove(c)
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) add(c *Client) {
	if len(h.clients) >= maxClients || h.perTenant[c.TenantID] >= maxClientsPerTenant {
		h.log.WithField("tenant_id", c.TenantID).Warn("stream connection limit reached, dropping client")
		c.closeSend()

		return
	}

	h.clients[c] = struct{}{}
	h.perTenant[c.TenantID]++
	h.updateCount()
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	c.closeSend()

	h.perTenant[c.TenantID]--
	if h.perTenant[c.TenantID] <= 0 {
		delete(h.perTenant, c.TenantID)
	}

	h.updateCount()
}

func (h *Hub) updateCount() {
	h.clientCount.Store(int64(len(h.clients)))
	metrics.StreamConnections.Set(float64(len(h.clients)))
}

// Register hands a client to the Run loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("stream register queue full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client. It is a no-op after Run has exited.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// Publish sends a recorded run event to the event's tenant.
func (h *Hub) Publish(ev *models.RunEvent) {
	msg := Message{
		Type:  TypeRunEvent,
		Seq:   h.seq.Next(ev.TenantID),
		Event: ev,
		Time:  time.Now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("marshaling stream frame")

		return
	}

	h.replay.Append(ev.TenantID, msg)

	select {
	case h.frames <- tenantFrame{tenantID: ev.TenantID, payload: payload}:
	default:
		metrics.StreamFramesDropped.Inc()
		h.log.WithField("tenant_id", ev.TenantID).Warn("stream publish queue full, dropping frame")
	}
}

// Replay queues the frames the client missed after lastSeq. It returns false
// when some of them are no longer buffered.
func (h *Hub) Replay(c *Client, lastSeq uint64) bool {
	frames, ok := h.replay.Since(c.TenantID, lastSeq)
	if !ok {
		return false
	}

	for _, msg := range frames {
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}

		if !c.trySend(payload) {
			break
		}
	}

	return true
}

// drain sends a shutdown frame and gives clients a moment to flush it.
func (h *Hub) drain() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining stream clients")

	bye, _ := json.Marshal(ResetMsg{Type: TypeShutdown, Reason: "server shutting down"}) //nolint:errcheck // static value.
	for c := range h.clients {
		c.trySend(bye)
	}

	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) && h.pending() {
		time.Sleep(50 * time.Millisecond)
	}

	for c := range h.clients {
		h.remove(c)
	}
}

func (h *Hub) pending() bool {
	for c := range h.clients {
		if len(c.send) > 0 {
			return true
		}
	}

	return false
}
