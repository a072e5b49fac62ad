package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"yatube/internal/observability"

	"github.com/redis/go-redis/v9"
)

// PageKeyPrefix namespaces cached pages.
const PageKeyPrefix = "page:"

// CachedPage is a rendered response body.
type CachedPage struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PageCache stores rendered pages for a bounded time.
type PageCache interface {
	Get(ctx context.Context, key string) (CachedPage, bool)
	Put(ctx context.Context, key string, page CachedPage, ttl time.Duration)
	Clear(ctx context.Context) error
}

// NewPageCache returns a Redis-backed cache, or an in-process one when rdb is nil.
func NewPageCache(rdb *redis.Client) PageCache {
	if rdb == nil {
		return NewMemoryPageCache()
	}
	return NewRedisPageCache(rdb)
}

func recordLookup(hit bool) {
	if hit {
		observability.PageCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	observability.PageCacheLookups.WithLabelValues("miss").Inc()
}

// RedisPageCache keeps pages in Redis under PageKeyPrefix.
type RedisPageCache struct {
	rdb *redis.Client
}

// NewRedisPageCache wraps an existing client.
func NewRedisPageCache(rdb *redis.Client) *RedisPageCache {
	return &RedisPageCache{rdb: rdb}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (CachedPage, bool) {
	var page CachedPage
	found, err := GetJSON(ctx, c.rdb, PageKeyPrefix+key, &page)
	if err != nil {
		observability.Logger.WarnContext(ctx, "page cache read failed", "key", key, "error", err)
		found = false
	}
	recordLookup(found)
	return page, found
}

func (c *RedisPageCache) Put(ctx context.Context, key string, page CachedPage, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := SetJSON(ctx, c.rdb, PageKeyPrefix+key, page, ttl); err != nil {
		observability.Logger.WarnContext(ctx, "page cache write failed", "key", key, "error", err)
	}
}

// Clear deletes every cached page.
func (c *RedisPageCache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, PageKeyPrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("clear page cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan page cache: %w", err)
	}
	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("clear page cache: %w", err)
		}
	}
	return nil
}

type memoryEntry struct {
	page    CachedPage
	expires time.Time
}

// MemoryPageCache is the in-process fallback used without Redis.
type MemoryPageCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryPageCache returns an empty cache.
func NewMemoryPageCache() *MemoryPageCache {
	return &MemoryPageCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryPageCache) Get(_ context.Context, key string) (CachedPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && !c.now().Before(entry.expires) {
		delete(c.entries, key)
		ok = false
	}
	recordLookup(ok)
	return entry.page, ok
}

func (c *MemoryPageCache) Put(_ context.Context, key string, page CachedPage, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	body := make([]byte, len(page.Body))
	copy(body, page.Body)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		page:    CachedPage{ContentType: page.ContentType, Body: body},
		expires: c.now().Add(ttl),
	}
}

func (c *MemoryPageCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}
