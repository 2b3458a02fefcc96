package redisconn

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"clocksync.service/internal/config"
)

// NewClient creates and verifies a Redis client from the configured URL.
func NewClient(cfg config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Ping to verify the connection is alive
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	return rdb, nil
}
