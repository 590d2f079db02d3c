package asset

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes successful resolutions, evicting the least recently used
// entry past capacity. Failures are not cached.
type Cache struct {
	next    Resolver
	entries *lru.Cache[string, Info]
}

// NewCache wraps next. A non-positive capacity disables caching.
func NewCache(next Resolver, capacity int) *Cache {
	c := &Cache{next: next}
	if capacity > 0 {
		// lru.New only fails for a non-positive size.
		c.entries, _ = lru.New[string, Info](capacity)
	}
	return c
}

func (c *Cache) Resolve(ctx context.Context, uri string) (Info, error) {
	if c.entries == nil {
		return c.next.Resolve(ctx, uri)
	}
	if info, ok := c.entries.Get(uri); ok {
		return info, nil
	}
	info, err := c.next.Resolve(ctx, uri)
	if err != nil {
		return Info{}, err
	}
	c.entries.Add(uri, info)
	return info, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}
