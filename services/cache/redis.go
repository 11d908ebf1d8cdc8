package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sjsage522/wikicatalog/logger"
)

// RedisService implements CacheService on a Redis database
type RedisService struct {
	client *redis.Client
	ctx    context.Context
	log    *logger.Logger
}

// NewRedisService creates a new Redis-backed cache service
func NewRedisService(addr string, db int) *RedisService {
	return &RedisService{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		ctx: context.Background(),
		log: logger.ForCache(),
	}
}

// Get retrieves a value from Redis
func (r *RedisService) Get(key string) ([]byte, error) {
	value, err := r.client.Get(r.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, backendError(r.log, "redis", "get", key, err)
	}
	return value, nil
}

// Set stores a value in Redis with an expiration time
func (r *RedisService) Set(key string, value []byte, expiration time.Duration) error {
	if err := r.client.Set(r.ctx, key, value, expiration).Err(); err != nil {
		return backendError(r.log, "redis", "set", key, err)
	}
	return nil
}

// Delete removes a value from Redis
func (r *RedisService) Delete(key string) error {
	if err := r.client.Del(r.ctx, key).Err(); err != nil {
		return backendError(r.log, "redis", "delete", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisService) Close() error {
	return r.client.Close()
}
