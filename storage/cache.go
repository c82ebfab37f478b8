// ABOUTME: In-memory cache in front of a Signer
// ABOUTME: Reuses a signed URL while at least half its lifetime remains
package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachingSigner reuses signed URLs while they still have most of their
// lifetime left. Entries expire at half the requested ttl so a cached URL
// handed out always has at least ttl/2 of validity remaining. The returned
// ExpiresAt is the original signature's, not the cache entry's.
type CachingSigner struct {
	next  Signer
	cache *gocache.Cache
}

// NewCachingSigner wraps next with an in-memory cache.
func NewCachingSigner(next Signer, cleanupInterval time.Duration) *CachingSigner {
	return &CachingSigner{
		next:  next,
		cache: gocache.New(DefaultTTL/2, cleanupInterval),
	}
}

// SignURL returns a cached URL or signs a fresh one. Failures are not cached.
func (c *CachingSigner) SignURL(ctx context.Context, path string, ttl time.Duration) (SignedURL, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key := ttl.String() + "|" + path
	if val, found := c.cache.Get(key); found {
		return val.(SignedURL), nil
	}

	signed, err := c.next.SignURL(ctx, path, ttl)
	if err != nil {
		return SignedURL{}, err
	}

	c.cache.Set(key, signed, ttl/2)
	return signed, nil
}
