package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/lumen/internal/shared"
	"github.com/redis/go-redis/v9"
)

// RedisSlot stores keys in redis. Expiry is left to the [Store]; keys are written without a TTL.
type RedisSlot struct {
	client *redis.Client
}

// NewRedisSlot connects to the redis instance at url (redis://host:port/db) and pings it.
func NewRedisSlot(ctx context.Context, url string) (*RedisSlot, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %v", shared.ErrInvalidConfig, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSlot{client: client}, nil
}

// NewRedisSlotFromClient wraps an existing client.
func NewRedisSlotFromClient(client *redis.Client) *RedisSlot {
	return &RedisSlot{client: client}
}

func (r *RedisSlot) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrSlotEmpty
	}
	return data, err
}

func (r *RedisSlot) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisSlot) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Close closes the underlying client.
func (r *RedisSlot) Close() error {
	return r.client.Close()
}
