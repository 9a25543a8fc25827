package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	site      *Site
	expiresAt time.Time
}

// SiteCache keeps loaded sites in memory so repeated API requests against the
// same dataset skip file parsing. A nil *SiteCache is a valid, disabled cache.
type SiteCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewSiteCache returns a cache whose entries expire after ttl.
// It returns nil (caching disabled) when ttl <= 0.
func NewSiteCache(ttl time.Duration) *SiteCache {
	if ttl <= 0 {
		return nil
	}
	return &SiteCache{store: make(map[string]*cacheEntry), ttl: ttl, now: time.Now}
}

// Get retrieves a cached site if available and not expired.
func (c *SiteCache) Get(key string) (*Site, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.site, true
}

// Set stores a site and drops expired entries.
func (c *SiteCache) Set(key string, site *Site) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.store[key] = &cacheEntry{site: site, expiresAt: now.Add(c.ttl)}
}

func (c *SiteCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache.
func (c *SiteCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*cacheEntry)
}

// CacheKey derives a stable key from the files a site is loaded from.
func CacheKey(files SiteFiles) string {
	keyStr := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		files.Load.Path, files.Load.Column,
		files.Irradiance.Path, files.Irradiance.Column,
		files.Temperature.Path, files.Temperature.Column,
		files.WindSpeed.Path, files.WindSpeed.Column,
	)

	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}
