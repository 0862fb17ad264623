package catalog

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CacheName labels catalog cache metrics.
const CacheName = "catalog"

const listKey = "\x00list"

// CacheObserver receives cache activity, typically a metrics collector.
type CacheObserver interface {
	RecordHit(cache string)
	RecordMiss(cache string)
	UpdateSize(cache string, size int)
	RecordEviction(cache string)
}

// CachedStorage is a read-through cache in front of another Storage.
// Writes go straight to the backend and invalidate affected keys.
type CachedStorage struct {
	backend  Storage
	cache    *gocache.Cache
	observer CacheObserver
}

// NewCachedStorage wraps backend. Entries expire after ttl and expired
// entries are purged every cleanup interval. observer may be nil.
func NewCachedStorage(backend Storage, ttl, cleanup time.Duration, observer CacheObserver) *CachedStorage {
	c := &CachedStorage{
		backend:  backend,
		cache:    gocache.New(ttl, cleanup),
		observer: observer,
	}
	// Fires for expiry and for explicit invalidation.
	c.cache.OnEvicted(func(string, any) {
		if c.observer != nil {
			c.observer.RecordEviction(CacheName)
		}
	})
	return c
}

func (c *CachedStorage) Create(ctx context.Context, e *Element) (*Element, error) {
	created, err := c.backend.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	c.invalidate(created.Element)
	return created, nil
}

func (c *CachedStorage) Get(ctx context.Context, name string) (*Element, error) {
	if v, ok := c.cache.Get(name); ok {
		c.hit()
		return v.(*Element).Clone(), nil
	}
	c.miss()

	e, err := c.backend.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(name, e.Clone())
	c.sized()
	return e, nil
}

func (c *CachedStorage) List(ctx context.Context) ([]*Element, error) {
	if v, ok := c.cache.Get(listKey); ok {
		c.hit()
		return cloneAll(v.([]*Element)), nil
	}
	c.miss()

	list, err := c.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(listKey, cloneAll(list))
	c.sized()
	return list, nil
}

func (c *CachedStorage) Update(ctx context.Context, name string, u Update) (*Element, error) {
	updated, err := c.backend.Update(ctx, name, u)
	if err != nil {
		return nil, err
	}
	c.invalidate(name, updated.Element)
	return updated, nil
}

func (c *CachedStorage) Delete(ctx context.Context, name string) error {
	if err := c.backend.Delete(ctx, name); err != nil {
		return err
	}
	c.invalidate(name)
	return nil
}

func (c *CachedStorage) Close() error {
	c.cache.Flush()
	return c.backend.Close()
}

// Len returns the number of cached keys, including expired ones not yet purged.
func (c *CachedStorage) Len() int {
	return c.cache.ItemCount()
}

// Backend returns the wrapped storage.
func (c *CachedStorage) Backend() Storage {
	return c.backend
}

func (c *CachedStorage) invalidate(names ...string) {
	for _, n := range names {
		c.cache.Delete(n)
	}
	c.cache.Delete(listKey)
	c.sized()
}

func (c *CachedStorage) hit() {
	if c.observer != nil {
		c.observer.RecordHit(CacheName)
	}
}

func (c *CachedStorage) miss() {
	if c.observer != nil {
		c.observer.RecordMiss(CacheName)
	}
}

func (c *CachedStorage) sized() {
	if c.observer != nil {
		c.observer.UpdateSize(CacheName, c.cache.ItemCount())
	}
}

func cloneAll(in []*Element) []*Element {
	out := make([]*Element, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
