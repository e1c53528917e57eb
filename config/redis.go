package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// ConnectRedis connects to Redis when a URL is configured.
// An empty URL leaves the client nil and callers degrade to uncached reads.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	redisClient = client
	return client, nil
}

// GetRedis returns the Redis client, or nil when caching is disabled
func GetRedis() *redis.Client {
	return redisClient
}

// SetRedis sets the Redis client (primarily for testing)
func SetRedis(client *redis.Client) {
	redisClient = client
}
