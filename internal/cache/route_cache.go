// Package cache keeps route -> node id lookups in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRouteTTL bounds how long a route survives without being invalidated
const DefaultRouteTTL = time.Hour

// RouteCache implements the wiki RouteCache on Redis. Entries are hints:
// readers verify the node still holds the route.
type RouteCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRouteCache connects to redisURL. prefix separates environments sharing one server.
func NewRouteCache(redisURL, prefix string) (*RouteCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRouteCacheWithClient(client, prefix), nil
}

// NewRouteCacheWithClient wraps an existing client
func NewRouteCacheWithClient(client *redis.Client, prefix string) *RouteCache {
	return &RouteCache{
		client: client,
		prefix: prefix + "route:",
		ttl:    DefaultRouteTTL,
	}
}

func (c *RouteCache) key(route string) string {
	return c.prefix + route
}

// Get returns the cached node id for route
func (c *RouteCache) Get(ctx context.Context, route string) (string, bool, error) {
	id, err := c.client.Get(ctx, c.key(route)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get route %s: %w", route, err)
	}
	return id, true, nil
}

// Set caches route -> nodeID
func (c *RouteCache) Set(ctx context.Context, route, nodeID string) error {
	if err := c.client.Set(ctx, c.key(route), nodeID, c.ttl).Err(); err != nil {
		return fmt.Errorf("set route %s: %w", route, err)
	}
	return nil
}

// Invalidate drops every given route
func (c *RouteCache) Invalidate(ctx context.Context, routes ...string) error {
	if len(routes) == 0 {
		return nil
	}
	keys := make([]string, len(routes))
	for i, r := range routes {
		keys[i] = c.key(r)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate %d routes: %w", len(routes), err)
	}
	return nil
}

// Ping checks the connection
func (c *RouteCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RouteCache) Close() error {
	return c.client.Close()
}
