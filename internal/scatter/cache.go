package scatter

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of layouts a Cache keeps when no size is
// given. At the API's count cap one layout is about 560 KB.
const DefaultCacheSize = 256

// CacheObserver is notified of cache lookups. Implementations must be safe
// for concurrent use.
type CacheObserver interface {
	CacheHit(layer string)
	CacheMiss(layer string, count uint)
}

type cacheKey struct {
	seed   int64
	count  uint
	ranges Ranges
}

// Cache memoises generated layouts keyed by seed, count and ranges, keeping
// at most its size in layouts and evicting the least recently used.
//
// Thread-safe. Stored slices are never handed out; callers always receive a
// copy they are free to modify.
type Cache struct {
	entries  *lru.Cache[cacheKey, []Particle]
	size     int
	observer CacheObserver
}

// NewCache creates an empty cache holding up to size layouts; size <= 0 uses
// DefaultCacheSize. observer may be nil.
func NewCache(size int, observer CacheObserver) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[cacheKey, []Particle](size)
	return &Cache{
		entries:  entries,
		size:     size,
		observer: observer,
	}
}

// Particles returns the layer's particles, generating them on first use.
func (c *Cache) Particles(l Layer) []Particle {
	key := cacheKey{seed: l.Seed, count: l.Count, ranges: l.Ranges}

	if cached, ok := c.entries.Get(key); ok {
		if c.observer != nil {
			c.observer.CacheHit(l.Name)
		}
		return slices.Clone(cached)
	}

	if c.observer != nil {
		c.observer.CacheMiss(l.Name, l.Count)
	}
	generated := l.Particles()

	// A concurrent miss may have stored the same layout already; both are
	// identical so keeping either is fine.
	c.entries.Add(key, generated)

	return slices.Clone(generated)
}

// Len returns the number of cached layouts.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Size returns the most layouts the cache keeps.
func (c *Cache) Size() int {
	return c.size
}

// Reset drops every cached layout.
func (c *Cache) Reset() {
	c.entries.Purge()
}
