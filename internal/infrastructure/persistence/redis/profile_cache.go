package redis

import (
	"context"
	"errors"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE CACHE
// Short-lived cache in front of the postgres profile projection. Invalidated
// by the projection updater on every reward, completion, and badge event.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileCache implements profile.Cache using the generic Redis Cache.
type ProfileCache struct {
	cache *Cache
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache}
}

// ProfileKey returns the cache key for a profile owner.
func ProfileKey(owner shared.Identity) string {
	return PrefixProfile + owner.String()
}

// Get fetches a cached profile. Returns shared.ErrNotFound on miss.
func (c *ProfileCache) Get(ctx context.Context, owner shared.Identity) (*profile.StudentProfile, error) {
	var p profile.StudentProfile
	err := c.cache.Get(ctx, ProfileKey(owner), &p)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Set stores a profile with a TTL.
func (c *ProfileCache) Set(ctx context.Context, p *profile.StudentProfile, ttl time.Duration) error {
	if p == nil {
		return nil
	}
	return c.cache.Set(ctx, ProfileKey(p.Owner), p, ttl)
}

// Invalidate drops the cached entry for the identity.
func (c *ProfileCache) Invalidate(ctx context.Context, owner shared.Identity) error {
	return c.cache.Delete(ctx, ProfileKey(owner))
}

// InvalidateAll clears the whole profile cache.
func (c *ProfileCache) InvalidateAll(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixProfile+"*")
}
