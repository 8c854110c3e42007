package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
)

// CacheEntry is a fetched rate table and the time it was stored
type CacheEntry struct {
	Rates     entity.RateTable
	Timestamp time.Time
}

// RateTableCache is a thread-safe in-memory cache of live rate tables
type RateTableCache struct {
	cache      map[string]CacheEntry
	expiration time.Duration
	now        func() time.Time
	mutex      sync.RWMutex
}

// NewRateTableCache creates a cache whose entries live for expiration.
// A zero expiration disables caching.
func NewRateTableCache(expiration time.Duration) *RateTableCache {
	return &RateTableCache{
		cache:      make(map[string]CacheEntry),
		expiration: expiration,
		now:        time.Now,
	}
}

// generateCacheKey builds an order-independent key such as "ZAR:EUR,USD"
func generateCacheKey(base entity.CurrencyCode, symbols []entity.CurrencyCode) string {
	codes := make([]string, len(symbols))
	for i, s := range symbols {
		codes[i] = string(s)
	}
	sort.Strings(codes)
	return string(base) + ":" + strings.Join(codes, ",")
}

// Get returns a copy of the cached table, or nil when absent or expired
func (c *RateTableCache) Get(base entity.CurrencyCode, symbols []entity.CurrencyCode) entity.RateTable {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.expiration <= 0 {
		return nil
	}

	entry, exists := c.cache[generateCacheKey(base, symbols)]
	if !exists || c.now().Sub(entry.Timestamp) > c.expiration {
		return nil
	}

	return entry.Rates.Clone()
}

// Put stores a copy of the table
func (c *RateTableCache) Put(base entity.CurrencyCode, symbols []entity.CurrencyCode, rates entity.RateTable) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.expiration <= 0 {
		return
	}

	c.cache[generateCacheKey(base, symbols)] = CacheEntry{
		Rates:     rates.Clone(),
		Timestamp: c.now(),
	}
}

// Clear clears all entries from the cache
func (c *RateTableCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string]CacheEntry)
}

// SetExpiration sets the cache expiration duration
func (c *RateTableCache) SetExpiration(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.expiration = duration
}

// Size returns the number of items in the cache
func (c *RateTableCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CleanExpired removes expired entries and reports how many were dropped
func (c *RateTableCache) CleanExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	count := 0
	now := c.now()

	for key, entry := range c.cache {
		if now.Sub(entry.Timestamp) > c.expiration {
			delete(c.cache, key)
			count++
		}
	}

	return count
}
