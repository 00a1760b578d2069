package codeforces

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the cache-aside seam in front of the API. Misses and cache
// errors are equivalent: the caller just goes to the network.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, "cf:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte) {
	// Best effort; a failed write just means a future miss.
	c.rdb.Set(ctx, "cf:"+key, val, c.ttl)
}
