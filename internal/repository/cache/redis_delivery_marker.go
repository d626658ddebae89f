package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "ledger:webhook:processed:"

// RedisDeliveryMarker shares processed-event ids across server replicas.
type RedisDeliveryMarker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeliveryMarker(rdb *redis.Client, ttl time.Duration) *RedisDeliveryMarker {
	return &RedisDeliveryMarker{rdb: rdb, ttl: ttl}
}

func (m *RedisDeliveryMarker) IsProcessed(ctx context.Context, eventId string) (bool, error) {
	err := m.rdb.Get(ctx, deliveryKeyPrefix+eventId).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *RedisDeliveryMarker) MarkProcessed(ctx context.Context, eventId string) error {
	return m.rdb.Set(ctx, deliveryKeyPrefix+eventId, time.Now().Unix(), m.ttl).Err()
}
