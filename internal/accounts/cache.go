package accounts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// ProfileCache stores the viewer-independent part of channel profiles keyed by
// username. Implementations treat backend failures as cache misses.
type ProfileCache interface {
	Get(ctx context.Context, username string) (models.ChannelProfile, bool)
	Set(ctx context.Context, profile models.ChannelProfile)
	Delete(ctx context.Context, usernames ...string)
}

type cacheEntry struct {
	profile models.ChannelProfile
	expires time.Time
}

// MemoryProfileCache is a TTL-based in-process ProfileCache.
type MemoryProfileCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewMemoryProfileCache returns a cache holding profiles for the provided TTL.
func NewMemoryProfileCache(ttl time.Duration) *MemoryProfileCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryProfileCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

func (c *MemoryProfileCache) Get(_ context.Context, username string) (models.ChannelProfile, bool) {
	key := cacheKey(username)

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return models.ChannelProfile{}, false
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return models.ChannelProfile{}, false
	}
	return entry.profile, true
}

func (c *MemoryProfileCache) Set(_ context.Context, profile models.ChannelProfile) {
	profile.IsSubscribed = false

	c.mu.Lock()
	c.items[cacheKey(profile.Username)] = cacheEntry{profile: profile, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryProfileCache) Delete(_ context.Context, usernames ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, username := range usernames {
		delete(c.items, cacheKey(username))
	}
}

func cacheKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
