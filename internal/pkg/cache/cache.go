package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hasib1010/Happylife-sub003/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection used for soft state: reconcile
// throttling and rate limiter storage. Nothing entitlement-critical is ever
// read from here.
type Client struct {
	rdb *redis.Client
}

// New connects to the Redis server configured via CACHE_HOST/CACHE_PORT.
func New() *Client {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	if pong, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Warnf("[Cache] Could not connect to Redis: %v", err)
	} else {
		log.Infof("[Cache] Connected to Redis: %s", pong)
	}

	return &Client{rdb: rdb}
}

// Redis exposes the raw client for integrations that need it.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Set stores a value in the cache with the given key and expiration time
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// SetNX stores a value only if the key does not exist yet; returns whether
// the write happened. Used as a cheap once-per-window guard.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, expiration).Result()
}

// Delete removes a value from the cache by key
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Close shuts down the Redis connection.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
