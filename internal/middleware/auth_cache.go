package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	tenantCacheTTL   = 5 * time.Minute
	negativeCacheTTL = 30 * time.Second
	maxCacheEntries  = 10000
)

// errCachedNotFound is returned for negative cache hits.
var errCachedNotFound = errors.New("tenant not found (cached)")

// hashKey returns the hex SHA-256 of an API key. Raw keys are never cached.
func hashKey(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:])
}

// CachedTenantLookup wraps a TenantLookup with bounded TTL caches. Failed
// lookups are remembered briefly so a bad key cannot hammer the database.
type CachedTenantLookup struct {
	inner    TenantLookup
	tenants  *expirable.LRU[string, string]
	negative *expirable.LRU[string, struct{}]
}

// NewCachedTenantLookup creates a caching wrapper around inner.
func NewCachedTenantLookup(inner TenantLookup) *CachedTenantLookup {
	return &CachedTenantLookup{
		inner:    inner,
		tenants:  expirable.NewLRU[string, string](maxCacheEntries, nil, tenantCacheTTL),
		negative: expirable.NewLRU[string, struct{}](maxCacheEntries, nil, negativeCacheTTL),
	}
}

// GetTenantByAPIKey returns a cached tenant ID or delegates to the inner lookup.
func (c *CachedTenantLookup) GetTenantByAPIKey(ctx context.Context, apiKey string) (string, error) {
	hk := hashKey(apiKey)

	if tenantID, ok := c.tenants.Get(hk); ok {
		return tenantID, nil
	}

	if c.negative.Contains(hk) {
		return "", errCachedNotFound
	}

	tenantID, err := c.inner.GetTenantByAPIKey(ctx, apiKey)
	if err != nil {
		c.negative.Add(hk, struct{}{})

		return "", err
	}

	c.tenants.Add(hk, tenantID)

	return tenantID, nil
}
