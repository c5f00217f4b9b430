package api

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// responseCache is a thread-safe cache for upstream passthrough bodies,
// keyed by URL. Entries expire after a TTL and the oldest is evicted
// when the cache is full.
type responseCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*cachedResponse
	order   []string // oldest first
}

type cachedResponse struct {
	body      []byte
	fetchedAt time.Time
}

// newResponseCache creates a cache with the given maximum number of
// entries and TTL. Non-positive arguments fall back to 8 entries and
// five minutes.
func newResponseCache(maxSize int, ttl time.Duration) *responseCache {
	if maxSize <= 0 {
		maxSize = 8
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &responseCache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*cachedResponse),
	}
}

// newResponseCacheFromEnv reads the TTL in seconds from
// PASSTHROUGH_CACHE_TTL.
func newResponseCacheFromEnv() *responseCache {
	ttl := 5 * time.Minute
	if v := os.Getenv("PASSTHROUGH_CACHE_TTL"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ttl = time.Duration(parsed) * time.Second
		}
	}
	return newResponseCache(8, ttl)
}

// get returns the cached body for the URL if a fresh entry exists.
func (c *responseCache) get(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > c.ttl {
		c.remove(url)
		return nil, false
	}
	return entry.body, true
}

// put stores a body for the URL, evicting the oldest entry if full.
func (c *responseCache) put(url string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[url]; ok {
		c.entries[url] = &cachedResponse{body: body, fetchedAt: time.Now()}
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[url] = &cachedResponse{body: body, fetchedAt: time.Now()}
	c.order = append(c.order, url)
}

func (c *responseCache) remove(url string) {
	delete(c.entries, url)
	for i, k := range c.order {
		if k == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
