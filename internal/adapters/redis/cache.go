package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/qa-service/internal/domain"
	"github.com/jsamuelsen/qa-service/internal/ports"
)

// Cache implements ports.Cache with plain string keys under a prefix.
type Cache struct {
	rdb    goredis.UniversalClient
	prefix string
}

var _ ports.Cache = (*Cache)(nil)

// NewCache creates a cache. Keys are stored as prefix+key.
func NewCache(rdb goredis.UniversalClient, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix}
}

// Get implements ports.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.NewNotFoundError("cache entry", key)
	}

	if err != nil {
		return nil, unavailable("cache get", err)
	}

	return b, nil
}

// Set implements ports.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = 0
	}

	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return unavailable("cache set", err)
	}

	return nil
}

// Delete implements ports.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.prefix+key).Err(); err != nil {
		return unavailable("cache delete", err)
	}

	return nil
}
