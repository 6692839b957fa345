package ws

import (
	"sync"
	"time"

	"github.com/persistorai/isomatch/internal/models"
)

// Message types sent to stream subscribers.
const (
	TypeRunEvent = "run_event"
	TypeReset    = "reset"
	TypeShutdown = "shutdown"
)

// Message is one frame on the run event stream. Seq increases per tenant and
// lets a reconnecting client ask for everything it missed.
type Message struct {
	Type  string           `json:"type"`
	Seq   uint64           `json:"seq"`
	Event *models.RunEvent `json:"event"`
	Time  time.Time        `json:"time"`
}

// SubscribeMsg is sent by the client to replay frames after LastSeq.
type SubscribeMsg struct {
	Type    string `json:"type"`
	LastSeq uint64 `json:"last_seq"`
}

// ResetMsg tells the client its LastSeq is no longer buffered and it should
// reload history from the events endpoint.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// sequence hands out per-tenant frame numbers.
type sequence struct {
	mu   sync.Mutex
	next map[string]uint64
}

func newSequence() *sequence {
	return &sequence{next: make(map[string]uint64)}
}

func (s *sequence) Next(tenantID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next[tenantID]++

	return s.next[tenantID]
}
