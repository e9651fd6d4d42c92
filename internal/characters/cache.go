package characters

import (
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = time.Hour
)

// ReferenceCache holds processed reference images in memory, keyed by
// character id, source and seed, so concurrent jobs share one copy. An
// extracted character never shares an entry with a registered one of the
// same name.
type ReferenceCache struct {
	c *cache.Cache
}

// NewReferenceCache creates a cache whose entries expire after ttl.
func NewReferenceCache(ttl time.Duration) *ReferenceCache {
	if ttl <= 0 {
		ttl = defaultCacheExpiration
	}
	return &ReferenceCache{c: cache.New(ttl, cacheCleanupInterval)}
}

func cacheKey(c *Character) string {
	if c.Seed == nil {
		return fmt.Sprintf("%s:%s", c.ID, c.Source)
	}
	return fmt.Sprintf("%s:%s:%d", c.ID, c.Source, *c.Seed)
}

// Get returns the cached reference image for c.
func (rc *ReferenceCache) Get(c *Character) ([]byte, bool) {
	v, ok := rc.c.Get(cacheKey(c))
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

// Set caches a reference image for c.
func (rc *ReferenceCache) Set(c *Character, png []byte) {
	rc.c.SetDefault(cacheKey(c), png)
}

// Forget drops every cached image for a character id, whatever its source.
func (rc *ReferenceCache) Forget(id string) {
	prefix := id + ":"
	for k := range rc.c.Items() {
		if strings.HasPrefix(k, prefix) {
			rc.c.Delete(k)
		}
	}
}

// Len returns the number of cached images.
func (rc *ReferenceCache) Len() int {
	return rc.c.ItemCount()
}
