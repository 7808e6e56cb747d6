package services

import (
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LookupCache memoizes successful lookups (weather by city, knowledge by
// query) for a bounded time. A nil *LookupCache never hits.
type LookupCache struct {
	lru *expirable.LRU[string, string]
}

// NewLookupCache returns nil when the cache is disabled (size <= 0).
func NewLookupCache(cfg CacheConfig) *LookupCache {
	if cfg.Size <= 0 {
		return nil
	}
	return &LookupCache{lru: expirable.NewLRU[string, string](cfg.Size, nil, cfg.TTL)}
}

func cacheKey(service, key string) string {
	return service + "\x00" + strings.ToLower(strings.TrimSpace(key))
}

// Get returns a cached value.
func (c *LookupCache) Get(service, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.lru.Get(cacheKey(service, key))
}

// Add stores a value.
func (c *LookupCache) Add(service, key, value string) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(service, key), value)
}

// Len reports the number of live entries.
func (c *LookupCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
