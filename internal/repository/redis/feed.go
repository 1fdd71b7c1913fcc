package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

const (
	keyPrefix     = "feed:"
	generationKey = keyPrefix + "generation"
)

// FeedCache caches rendered export pages in Redis. Pages are namespaced by a
// generation counter, so invalidation is a single INCR and stale pages age
// out with their TTL.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFeedCache creates a new Redis-backed feed cache.
func NewFeedCache(client *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *FeedCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get feed generation: %w", err)
	}
	return gen, nil
}

func pageKey(gen int64, key string) string {
	return fmt.Sprintf("%s%d:%s", keyPrefix, gen, key)
}

// Get returns the cached page stored under key or a not found error.
func (c *FeedCache) Get(ctx context.Context, key string) ([]byte, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, pageKey(gen, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("feed page", pageKey(gen, key))
		}
		return nil, fmt.Errorf("redis get feed page: %w", err)
	}
	return data, nil
}

// Set stores a rendered page with the configured TTL.
func (c *FeedCache) Set(ctx context.Context, key string, page []byte) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, pageKey(gen, key), page, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set feed page: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached page.
func (c *FeedCache) InvalidateAll(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr feed generation: %w", err)
	}
	return nil
}

// Ping checks the connection for readiness probes.
func (c *FeedCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
