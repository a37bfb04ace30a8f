// Package cache is a small JSON cache on Redis used for read models that may
// be served slightly stale.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

type Cache struct {
	c      *redis.Client
	prefix string
}

// New connects using a redis:// URL.
func New(redisURL, prefix string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return NewWithClient(redis.NewClient(opts), prefix), nil
}

func NewWithClient(c *redis.Client, prefix string) *Cache {
	return &Cache{c: c, prefix: prefix}
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// GetJSON decodes the value under key into dst, or returns ErrMiss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) error {
	raw, err := c.c.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrMiss
		}
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.c.Set(ctx, c.key(key), raw, ttl).Err()
}

// DeletePrefix removes every key under prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.c.Scan(ctx, cursor, c.key(prefix)+"*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.c.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.c.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.c.Close()
}
