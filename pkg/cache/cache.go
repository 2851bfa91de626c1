// Package cache keeps show snapshots in Redis, keyed by the canonical hex id.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/0xmhha/show-indexer/internal/constants"
	"github.com/0xmhha/show-indexer/pkg/storage"
	"github.com/0xmhha/show-indexer/pkg/u256"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the subset of the go-redis client the cache uses
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// ShowCache stores ShowSnapshot JSON with a fixed TTL
type ShowCache struct {
	client Client
	ttl    time.Duration
	logger *zap.Logger
}

// Key returns the cache key of a show
func Key(id u256.Uint256) string {
	return u256.CacheKey(constants.ShowCachePrefix, id)
}

// New wraps an existing client
func New(client Client, ttl time.Duration, logger *zap.Logger) *ShowCache {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShowCache{client: client, ttl: ttl, logger: logger.Named("cache")}
}

// Dial connects to a redis:// or rediss:// url and verifies the connection
func Dial(ctx context.Context, url string, ttl time.Duration, logger *zap.Logger) (*ShowCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	c := New(client, ttl, logger)
	c.logger.Info("redis cache connected", zap.String("addr", opts.Addr), zap.Duration("ttl", c.ttl))
	return c, nil
}

// Get returns the cached snapshot. A miss returns (nil, false, nil).
func (c *ShowCache) Get(ctx context.Context, id u256.Uint256) (*storage.ShowSnapshot, bool, error) {
	data, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", Key(id), err)
	}

	var show storage.ShowSnapshot
	if err := json.Unmarshal(data, &show); err != nil {
		// A corrupt entry is treated as a miss and replaced on the next Set
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", Key(id)), zap.Error(err))
		return nil, false, nil
	}
	return &show, true, nil
}

// Set stores a snapshot under its id
func (c *ShowCache) Set(ctx context.Context, show *storage.ShowSnapshot) error {
	data, err := json.Marshal(show)
	if err != nil {
		return fmt.Errorf("failed to encode show %s: %w", show.ID, err)
	}
	if err := c.client.Set(ctx, Key(show.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", Key(show.ID), err)
	}
	return nil
}

// Delete removes a show's entry
func (c *ShowCache) Delete(ctx context.Context, id u256.Uint256) error {
	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", Key(id), err)
	}
	return nil
}

// Ping checks the redis connection
func (c *ShowCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client
func (c *ShowCache) Close() error {
	return c.client.Close()
}
