package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "dedupe:"

	valueProcessing = "processing"
	valueCompleted  = "completed"

	// DefaultProcessingTTL covers the time one caller needs to run the
	// side-effect pipeline; duplicates arriving inside it lose the admit race.
	DefaultProcessingTTL = 30 * time.Second
	// DefaultCompletedTTL absorbs straggler deliveries arriving well after the
	// original event finished processing.
	DefaultCompletedTTL = 3600 * time.Second
)

// Locker is the distributed admission contract for one dedupe key. Admission
// must be resolved in a store shared by all replicas; an in-process mutex
// cannot dedupe webhooks delivered to different instances.
type Locker interface {
	// Admit atomically claims the key. True means this caller created the
	// entry and owns processing; false means someone else holds or recently
	// held it. An error means exclusivity could not be determined at all.
	Admit(ctx context.Context, key string) (bool, error)
	// Complete unconditionally marks the key processed, with the long TTL.
	Complete(ctx context.Context, key string) error
	// Exists reports whether the key currently has an entry. Diagnostic only.
	Exists(ctx context.Context, key string) (bool, error)
}

// RedisLocker implements Locker on a Redis SET NX EX primitive.
type RedisLocker struct {
	rdb           *redis.Client
	processingTTL time.Duration
	completedTTL  time.Duration
}

// NewRedisLocker creates a locker. Non-positive TTLs fall back to the defaults.
func NewRedisLocker(rdb *redis.Client, processingTTL, completedTTL time.Duration) *RedisLocker {
	if processingTTL <= 0 {
		processingTTL = DefaultProcessingTTL
	}
	if completedTTL <= 0 {
		completedTTL = DefaultCompletedTTL
	}
	return &RedisLocker{
		rdb:           rdb,
		processingTTL: processingTTL,
		completedTTL:  completedTTL,
	}
}

func (l *RedisLocker) Admit(ctx context.Context, key string) (bool, error) {
	created, err := l.rdb.SetNX(ctx, keyPrefix+key, valueProcessing, l.processingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to admit dedupe key %s: %w", key, err)
	}
	return created, nil
}

func (l *RedisLocker) Complete(ctx context.Context, key string) error {
	if err := l.rdb.Set(ctx, keyPrefix+key, valueCompleted, l.completedTTL).Err(); err != nil {
		return fmt.Errorf("failed to complete dedupe key %s: %w", key, err)
	}
	return nil
}

func (l *RedisLocker) Exists(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedupe key %s: %w", key, err)
	}
	return n > 0, nil
}
