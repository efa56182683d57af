package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"panorama/internal/config"
	"panorama/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache client shaped by the resolved cache settings: every key
// is namespaced with the configured prefix and written with the configured
// default timeout.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis builds a client from cache settings and verifies the connection
// with a PING.
func NewRedis(cfg config.CacheSettings) (*Redis, error) {
	db, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("cache: redis db index %q: %w", cfg.RedisDB, err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{rdb: rdb, prefix: cfg.KeyPrefix, ttl: cfg.DefaultTimeout}, nil
}

// Close shuts down the underlying connection pool.
func (c *Redis) Close() error {
	return c.rdb.Close()
}

// Ping verifies the connection is still usable.
func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Set stores a value under the prefixed key with the default timeout.
func (c *Redis) Set(ctx context.Context, key string, value []byte) error {
	return c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

// Get fetches a value by key. Returns ErrNotFound when the key does not
// exist or has expired.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues("redis", "miss").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	metrics.CacheRequests.WithLabelValues("redis", "hit").Inc()
	return data, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (c *Redis) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}
