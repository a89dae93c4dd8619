package census

import (
	"context"
	"sync"

	"github.com/policymetrics/talent-flow-etl/internal/domain"
	"github.com/policymetrics/talent-flow-etl/internal/observability"
)

// CachedFetcher wraps a TableFetcher with an in-memory LRU cache. ACS
// estimates for a fixed vintage never change, so a cached table stays valid
// for the life of the process; the cache spares the API on every refresh
// cycle after the first successful one.
type CachedFetcher struct {
	inner   domain.TableFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner domain.TableFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchMobilityInflow(ctx context.Context) (map[string]domain.MobilityInflow, error) {
	return fetchCached(ctx, c, "b07009", c.inner.FetchMobilityInflow)
}

func (c *CachedFetcher) FetchMobilityOutflow(ctx context.Context) (map[string]domain.MobilityOutflow, error) {
	return fetchCached(ctx, c, "b07409", c.inner.FetchMobilityOutflow)
}

func (c *CachedFetcher) FetchEducationStock(ctx context.Context) (map[string]domain.EducationStock, error) {
	return fetchCached(ctx, c, "b15003", c.inner.FetchEducationStock)
}

func (c *CachedFetcher) FetchEarnings(ctx context.Context) (map[string]domain.Earnings, error) {
	return fetchCached(ctx, c, "b20004", c.inner.FetchEarnings)
}

func fetchCached[T any](ctx context.Context, c *CachedFetcher, key string, fetch func(context.Context) (map[string]T, error)) (map[string]T, error) {
	if cached, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(key, "hit").Inc()
		return cached.(map[string]T), nil
	}
	c.metrics.CacheLookups.WithLabelValues(key, "miss").Inc()

	result, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty tables so a transiently empty response can be retried.
	if len(result) > 0 {
		c.cache.put(key, result)
	}
	return result, nil
}

// lruCache is a simple thread-safe LRU cache for fetched tables.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value any
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
