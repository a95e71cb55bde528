// Package cache stores analysis reports keyed by document hash, in memory or
// in redis when cache.redis_addr is set.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"AccessDeck/internal/webconfig"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
	Kind() string
}

// New returns a redis cache when an address is configured, else memory.
func New(cfg webconfig.CacheConfig) Cache {
	if cfg.RedisAddr != "" {
		return NewRedis(redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			DialTimeout: 2 * time.Second,
			ReadTimeout: time.Second,
		}), "accessdeck:")
	}
	return NewMemory()
}

type memory struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	b   []byte
	exp time.Time
}

func NewMemory() Cache { return &memory{m: make(map[string]entry)} }

func (c *memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(c.m, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.b...), true, nil
}

func (c *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
	return nil
}

func (c *memory) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

func (c *memory) Ping(context.Context) error { return nil }
func (c *memory) Close() error               { return nil }
func (c *memory) Kind() string               { return "memory" }

type redisCache struct {
	r      *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) Cache {
	return &redisCache{r: client, prefix: prefix}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.r.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.r.Set(ctx, c.prefix+key, val, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, c.prefix+key).Err()
}

func (c *redisCache) Ping(ctx context.Context) error { return c.r.Ping(ctx).Err() }
func (c *redisCache) Close() error                   { return c.r.Close() }
func (c *redisCache) Kind() string                   { return "redis" }
