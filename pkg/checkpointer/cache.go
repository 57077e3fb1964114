package checkpointer

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
)

// CachedStore is a read-through LRU cache in front of a Store. Writes go to the
// backing store first and only update the cache on success. A failed write,
// ErrStaleWindow included, evicts the GSRN so the next Load reads the store.
//
// The cache is per process. Another replica writing the same GSRN leaves this
// cache stale until eviction, which at worst re-admits data that was already
// published.
type CachedStore struct {
	store   Store
	cache   *lru.Cache
	metrics *metrics.Metrics
}

func NewCachedStore(store Store, size int, m *metrics.Metrics) (*CachedStore, error) {
	if store == nil {
		return nil, errors.New("invalid store: must not be nil")
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create window cache: %w", err)
	}
	return &CachedStore{store: store, cache: cache, metrics: m}, nil
}

func (c *CachedStore) Initialize(ctx context.Context) error {
	return c.store.Initialize(ctx)
}

func (c *CachedStore) Load(ctx context.Context, gsrn string) (slidingwindow.Window, bool, error) {
	if v, ok := c.cache.Get(gsrn); ok {
		c.metrics.RecordCacheLookup(true)
		return v.(slidingwindow.Window).Clone(), true, nil
	}
	c.metrics.RecordCacheLookup(false)

	w, exists, err := c.store.Load(ctx, gsrn)
	if err != nil || !exists {
		return w, exists, err
	}
	c.cache.Add(gsrn, w.Clone())
	return w, true, nil
}

func (c *CachedStore) Save(ctx context.Context, w slidingwindow.Window) error {
	if err := c.store.Save(ctx, w); err != nil {
		c.cache.Remove(w.GSRN)
		return err
	}
	c.cache.Add(w.GSRN, w.Clone())
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, gsrn string) error {
	c.cache.Remove(gsrn)
	return c.store.Delete(ctx, gsrn)
}

// Len returns the number of cached windows.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
