package ws

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	replayMaxFrames  = 500
	replayMaxTenants = 10000
	replayTTL        = time.Hour
)

// replayBuffer keeps the most recent frames of each tenant so reconnecting
// clients can catch up. Tenants idle for longer than the TTL are evicted.
type replayBuffer struct {
	mu      sync.Mutex
	maxLen  int
	tenants *expirable.LRU[string, []Message]
}

func newReplayBuffer(maxLen int, ttl time.Duration) *replayBuffer {
	return &replayBuffer{
		maxLen:  maxLen,
		tenants: expirable.NewLRU[string, []Message](replayMaxTenants, nil, ttl),
	}
}

// Append stores msg, dropping the oldest frame once maxLen is reached.
func (b *replayBuffer) Append(tenantID string, msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frames, _ := b.tenants.Get(tenantID)
	frames = append(frames, msg)

	if len(frames) > b.maxLen {
		frames = append([]Message(nil), frames[len(frames)-b.maxLen:]...)
	}

	b.tenants.Add(tenantID, frames)
}

// Since returns a copy of the frames with Seq > lastSeq. ok is false when
// frames after lastSeq have already been dropped.
func (b *replayBuffer) Since(tenantID string, lastSeq uint64) (frames []Message, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, _ := b.tenants.Peek(tenantID)
	if len(buf) == 0 {
		return nil, true
	}

	if lastSeq+1 < buf[0].Seq {
		return nil, false
	}

	i := sort.Search(len(buf), func(i int) bool { return buf[i].Seq > lastSeq })

	return append([]Message(nil), buf[i:]...), true
}
