package bridge

import (
	"context"

	"github.com/make-os/grasp/pkgs/cache"
)

// CapabilityCache memoizes DetectCapabilities results per relay origin for
// ttlSeconds, avoiding a capability-detection round trip on every push when
// a worker repeatedly pushes to the same relay in a short window. Grounded
// on the teacher's pkgs/cache.NewCacheWithExpiringEntry, which already
// pairs an LRU with per-entry expiry for exactly this kind of short-lived,
// bounded lookup cache.
type CapabilityCache struct {
	inner      *cache.Cache
	ttlSeconds int
	get        httpGetter
}

// NewCapabilityCache builds a CapabilityCache holding at most capacity
// distinct relay origins, each entry expiring ttlSeconds after insertion.
func NewCapabilityCache(capacity, ttlSeconds int) *CapabilityCache {
	return &CapabilityCache{
		inner:      cache.NewCacheWithExpiringEntry(capacity),
		ttlSeconds: ttlSeconds,
		get:        defaultHTTPGetter,
	}
}

// Detect returns the cached Capabilities for httpOrigin if present,
// otherwise runs detection and caches the result. Expired entries are
// dropped by the cache's periodic sweep (every cache.DefaultRemovalInterval)
// and on insertion, so an entry can be served for up to one sweep interval
// past its ttl.
func (c *CapabilityCache) Detect(ctx context.Context, httpOrigin string) (*Capabilities, error) {
	if v := c.inner.Get(httpOrigin); v != nil {
		return v.(*Capabilities), nil
	}
	caps, err := detectCapabilities(ctx, httpOrigin, c.get)
	if err != nil {
		return nil, err
	}
	c.inner.Add(httpOrigin, caps, cache.Sec(c.ttlSeconds))
	return caps, nil
}
