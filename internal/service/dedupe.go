package service

import (
	"context"
	"time"

	redisclient "github.com/wabridge/relay-server-go/internal/redis"
)

// Deduper claims gateway message ids so a redelivered webhook is processed once.
type Deduper interface {
	Claim(ctx context.Context, instanceName, messageID string) (bool, error)
	Release(ctx context.Context, instanceName, messageID string) error
}

type RedisDeduper struct {
	redis *redisclient.Client
	ttl   time.Duration
}

func NewRedisDeduper(redisClient *redisclient.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{redis: redisClient, ttl: ttl}
}

// Claim reports true the first time a message id is seen within the TTL.
// Messages without an id cannot be deduplicated and are always claimed.
func (d *RedisDeduper) Claim(ctx context.Context, instanceName, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	return d.redis.SetNX(ctx, redisclient.DedupeKey(instanceName, messageID), 1, d.ttl).Result()
}

// Release drops a claim so a later redelivery can be processed again.
func (d *RedisDeduper) Release(ctx context.Context, instanceName, messageID string) error {
	if messageID == "" {
		return nil
	}
	return d.redis.Del(ctx, redisclient.DedupeKey(instanceName, messageID)).Err()
}
