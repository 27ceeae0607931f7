// Package redisclient opens the Redis connection that carries the alert feed.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a pooled Redis client.
type Client struct {
	client *redis.Client
}

// Connect parses redisURL, opens a pool and verifies it with PING.
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Pub/sub holds one connection per subscriber, the rest serve PUBLISH.
	opt.PoolSize = 10
	opt.MinIdleConns = 1
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// Ping checks Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Redis returns the underlying client for the alert bus.
func (c *Client) Redis() *redis.Client {
	return c.client
}
