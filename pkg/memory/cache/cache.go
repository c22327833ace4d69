// Package cache provides the short-lived, per-conversation read cache that
// fronts the record store. Entries expire after a fixed TTL tuned for typical
// human response latency; a background janitor sweeps expired entries to
// bound memory growth.
//
// Invalidate must be called synchronously after every write that changes a
// conversation's persisted turns. A stale read after a write is a correctness
// bug, not an acceptable race: the next context build has to see the
// just-written turn's sibling.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL is the default entry lifetime.
const DefaultTTL = 30 * time.Second

// keySeparator joins conversation id and sub-key into a flat cache key.
// Conversation ids are UUIDs, so the separator cannot collide.
const keySeparator = "\x00"

// Cache is a keyed snapshot store with time-based expiry and explicit
// per-conversation invalidation.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries expire after ttl. The janitor sweep runs
// at twice the TTL. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: gocache.New(ttl, ttl*2)}
}

// Get returns the cached value for the conversation and sub-key, or false
// when absent or expired.
func (c *Cache) Get(conversationID, subKey string) (any, bool) {
	return c.store.Get(conversationID + keySeparator + subKey)
}

// Put stores a snapshot value for the conversation and sub-key, replacing any
// previous entry.
func (c *Cache) Put(conversationID, subKey string, value any) {
	c.store.Set(conversationID+keySeparator+subKey, value, gocache.DefaultExpiration)
}

// Invalidate removes all entries for the conversation, across every sub-key.
func (c *Cache) Invalidate(conversationID string) {
	prefix := conversationID + keySeparator
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
}

// Flush removes every entry. Used by tests.
func (c *Cache) Flush() {
	c.store.Flush()
}
