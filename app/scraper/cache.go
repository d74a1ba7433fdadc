package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v2"
	"github.com/redis/go-redis/v9"
)

// PageCache keeps extracted pages by their URL.
type PageCache interface {
	Get(ctx context.Context, url string) (Page, bool, error)
	Set(ctx context.Context, url string, p Page) error
}

// LRUCache is an in-memory PageCache with expiration.
type LRUCache struct {
	c cache.Cache[string, Page]
}

// NewLRUCache makes new LRUCache. Zero ttl means entries never expire.
func NewLRUCache(maxKeys int, ttl time.Duration) *LRUCache {
	c := cache.NewCache[string, Page]().
		WithLRU().
		WithMaxKeys(maxKeys)
	if ttl > 0 {
		c = c.WithTTL(ttl)
	}
	return &LRUCache{c: c}
}

// Get returns the page from cache.
func (l *LRUCache) Get(_ context.Context, url string) (Page, bool, error) {
	p, ok := l.c.Get(url)
	return p, ok, nil
}

// Set puts the page to cache.
func (l *LRUCache) Set(_ context.Context, url string, p Page) error {
	l.c.Set(url, p, 0)
	return nil
}

// Stat returns cache stats.
func (l *LRUCache) Stat() cache.Stats { return l.c.Stat() }

const redisKeyPrefix = "newsagg:page:"

// RedisCache is a PageCache shared between processes via redis.
type RedisCache struct {
	cl  redis.UniversalClient
	ttl time.Duration
}

// NewRedisCache makes new RedisCache. Zero ttl means entries never expire.
func NewRedisCache(cl redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{cl: cl, ttl: ttl}
}

// Get returns the page from redis.
func (r *RedisCache) Get(ctx context.Context, url string) (Page, bool, error) {
	bts, err := r.cl.Get(ctx, redisKeyPrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return Page{}, false, nil
	}
	if err != nil {
		return Page{}, false, fmt.Errorf("get page from redis: %w", err)
	}

	var p Page
	if err := json.Unmarshal(bts, &p); err != nil {
		return Page{}, false, fmt.Errorf("unmarshal page: %w", err)
	}

	return p, true, nil
}

// Set puts the page to redis.
func (r *RedisCache) Set(ctx context.Context, url string, p Page) error {
	bts, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}

	if err := r.cl.Set(ctx, redisKeyPrefix+url, bts, r.ttl).Err(); err != nil {
		return fmt.Errorf("set page to redis: %w", err)
	}

	return nil
}
