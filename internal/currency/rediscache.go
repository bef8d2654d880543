package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/place-info/internal/fault"
)

// RedisCache keeps the record under a single Redis key. SET replaces the value
// atomically, so no temp-file dance is needed.
type RedisCache struct {
	rdb *redis.Client
	key string
}

// NewRedisCache connects to redisURL and pings the server.
func NewRedisCache(ctx context.Context, redisURL, key string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{rdb: rdb, key: key}, nil
}

func (c *RedisCache) Load(ctx context.Context) (Record, error) {
	const op = "currency.RedisCache.Load"

	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrCacheMiss
	}
	if err != nil {
		return Record{}, fault.New(fault.CacheCorruption, op, err)
	}
	return decodeRecord(op, data)
}

// Store writes the record without expiry; freshness is decided by the
// record's own timestamp.
func (c *RedisCache) Store(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
