package redisconn

import (
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"clocksync.service/internal/config"
)

// NewInstrumentedClient creates a Redis client with OpenTelemetry
// instrumentation. Every command shows up as a span under the request that
// issued it.
func NewInstrumentedClient(cfg config.Config) (*redis.Client, error) {
	rdb, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, fmt.Errorf("error instrumenting redis client: %w", err)
	}
	return rdb, nil
}
