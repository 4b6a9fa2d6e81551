// Package cache is a small in-process cache with tag-based invalidation.
// Entries are grouped under tags; evicting a tag drops every entry filed
// under it. Mutation paths evict, read paths fill.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

type TagCache struct {
	mu      sync.Mutex
	entries map[string]entry
	tags    map[string]map[string]struct{}
	ttl     time.Duration
	now     func() time.Time
}

func NewTagCache(ttl time.Duration) *TagCache {
	return &TagCache{
		entries: make(map[string]entry),
		tags:    make(map[string]map[string]struct{}),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *TagCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *TagCache) Set(key string, value any, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Evict removes every entry filed under any of the given tags.
func (c *TagCache) Evict(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for key := range c.tags[tag] {
			delete(c.entries, key)
		}
		delete(c.tags, tag)
	}
}
