package pipeline

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dgallion1/capdigest/internal/prompt"
)

// CacheKey identifies one summarization result. The same text summarized in
// a different style or with a different chunk size is a different entry.
type CacheKey struct {
	ContentHash  string
	Style        prompt.Style
	MaxChunkSize int
}

// Cache keeps recent summaries so identical uploads skip the generator.
// A nil *Cache or one built with size <= 0 caches nothing.
type Cache struct {
	lru *expirable.LRU[CacheKey, string]
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		return &Cache{}
	}
	return &Cache{lru: expirable.NewLRU[CacheKey, string](size, nil, ttl)}
}

func (c *Cache) Get(key CacheKey) (string, bool) {
	if c == nil || c.lru == nil {
		return "", false
	}
	return c.lru.Get(key)
}

func (c *Cache) Add(key CacheKey, summary string) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(key, summary)
}

func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
