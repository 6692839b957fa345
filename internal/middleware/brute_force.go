package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

const (
	bruteForceMaxAttempts = 5
	bruteForceWindow      = 15 * time.Minute
	bruteForceLockout     = 5 * time.Minute
	bruteForceMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// BruteForceGuard locks out API keys that fail authentication too often
// within bruteForceWindow. Records are keyed by key hash and expire on their own.
type BruteForceGuard struct {
	mu      sync.Mutex
	records *expirable.LRU[string, *failureRecord]
	log     *logrus.Logger
}

// NewBruteForceGuard creates a guard.
func NewBruteForceGuard(log *logrus.Logger) *BruteForceGuard {
	return &BruteForceGuard{
		records: expirable.NewLRU[string, *failureRecord](bruteForceMaxRecords, nil, bruteForceWindow),
		log:     log,
	}
}

// IsBlocked reports whether apiKey is currently locked out.
func (g *BruteForceGuard) IsBlocked(apiKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records.Peek(hashKey(apiKey))

	return ok && !rec.lockedAt.IsZero() && time.Since(rec.lockedAt) < bruteForceLockout
}

// RecordFailure counts a failed authentication for apiKey.
func (g *BruteForceGuard) RecordFailure(apiKey string) {
	kh := hashKey(apiKey)
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records.Peek(kh)
	if !ok || now.Sub(rec.firstFail) > bruteForceWindow {
		g.records.Add(kh, &failureRecord{attempts: 1, firstFail: now})

		return
	}

	rec.attempts++
	if rec.attempts >= bruteForceMaxAttempts {
		if rec.lockedAt.IsZero() {
			g.log.WithField("key_hash", kh[:16]+"...").Warn("api key locked out after repeated auth failures")
		}

		rec.lockedAt = now
	}

	g.records.Add(kh, rec)
}

// ResetKey clears failure tracking for apiKey after a successful login.
func (g *BruteForceGuard) ResetKey(apiKey string) {
	g.mu.Lock()
	g.records.Remove(hashKey(apiKey))
	g.mu.Unlock()
}

// BruteForceMiddleware rejects requests carrying a locked-out API key.
func BruteForceMiddleware(guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := ExtractBearerToken(c); apiKey != "" && guard.IsBlocked(apiKey) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")

			return
		}

		c.Next()
	}
}
