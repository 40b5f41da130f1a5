package file

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"salesreport/internal/table"
)

// Cache memoizes parsed tables by file content. A file whose bytes have not
// changed is parsed once; concurrent loads of one path share a single read.
// Cached tables are immutable and are handed out to every caller.
type Cache struct {
	group singleflight.Group

	mu      sync.Mutex
	entries map[cacheKey]*table.Table

	hits, misses atomic.Int64
}

type cacheKey struct {
	sum  uint64
	opts string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*table.Table)}
}

// Load behaves like the package-level Load but reuses a previous parse when
// the file content is unchanged.
func (c *Cache) Load(ctx context.Context, name, path string, opt Options) (*table.Table, error) {
	v, err, _ := c.group.Do(path+"\x00"+opt.key(), func() (any, error) {
		b, err := readAll(ctx, path)
		if err != nil {
			return nil, err
		}
		k := cacheKey{sum: xxh3.Hash(b), opts: opt.key()}

		c.mu.Lock()
		t, ok := c.entries[k]
		c.mu.Unlock()
		if ok {
			c.hits.Add(1)
			return t, nil
		}

		c.misses.Add(1)
		t, err = parse(b, name, path, opt)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[k] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	t := v.(*table.Table)
	if t.Name() != name {
		t = t.Rename(name)
	}
	return t, nil
}

// Stats reports cache hits and misses since creation.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
