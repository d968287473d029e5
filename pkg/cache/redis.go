package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the production Cache, backed by go-redis.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to cacheURL (a redis:// URL) and returns a ready Redis
// cache.
func NewRedis(ctx context.Context, cacheURL string) (*Redis, error) {
	opts, err := redis.ParseURL(cacheURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Set(ctx context.Context, kind Kind, key string, value []byte, ttl ...time.Duration) error {
	if err := r.client.Set(ctx, namespacedKey(kind, key), value, ttlFor(kind, ttl)).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, kind Kind, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, namespacedKey(kind, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	return v, true, nil
}

func (r *Redis) Delete(ctx context.Context, kind Kind, key string) error {
	if err := r.client.Del(ctx, namespacedKey(kind, key)).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
