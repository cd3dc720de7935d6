package matcher

import (
	"container/list"
	"sync"
)

// maxCachedPatternLength keeps pathological patterns out of the cache
const maxCachedPatternLength = 1000

type cacheKey struct {
	pattern string
	opts    Options
}

type cacheEntry struct {
	key     cacheKey
	matcher *Matcher
}

// CacheStats tracks cache performance statistics
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is an LRU of compiled matchers for hosts that serve repeated
// requests (watch reruns, the socket server, MCP). Compile errors are not cached.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*list.Element
	lru     *list.List
	maxSize int
	stats   CacheStats
}

// NewCache creates a cache holding at most maxSize matchers.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		entries: make(map[cacheKey]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Compile returns a cached matcher or compiles and caches a new one.
func (c *Cache) Compile(pattern string, opts Options) (*Matcher, error) {
	key := cacheKey{pattern: pattern, opts: opts}

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		c.stats.Hits++
		m := elem.Value.(*cacheEntry).matcher
		c.mu.Unlock()
		return m, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	m, err := Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	if len(pattern) > maxCachedPatternLength {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		// Another goroutine won the race
		return elem.Value.(*cacheEntry).matcher, nil
	}
	for c.lru.Len() >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, matcher: m})
	return m, nil
}

// evictOldest removes the least recently used matcher. Caller holds mu.
func (c *Cache) evictOldest() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	delete(c.entries, back.Value.(*cacheEntry).key)
	c.lru.Remove(back)
	c.stats.Evictions++
}

// Len returns the number of cached matchers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear drops every cached matcher and resets statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*list.Element)
	c.lru.Init()
	c.stats = CacheStats{}
}
