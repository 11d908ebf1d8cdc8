package cache

import (
	"errors"
	"time"

	"sjsage522/wikicatalog/config"
	"sjsage522/wikicatalog/logger"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache: miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// NewFromConfig builds the cache service selected by CACHE_BACKEND
func NewFromConfig(cfg config.Cache) (CacheService, error) {
	log := logger.ForCache()

	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		log.Debug().Str("backend", config.CacheBackendMemory).Msg("Using in-process cache")
		return NewMemoryService(), nil
	case config.CacheBackendMemcache:
		log.Info().Str("backend", cfg.Backend).Str("addr", cfg.MemcacheAddr).Msg("Using memcache")
		return NewMemcacheService(cfg.MemcacheAddr), nil
	case config.CacheBackendRedis:
		log.Info().Str("backend", cfg.Backend).Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Using redis")
		return NewRedisService(cfg.RedisAddr, cfg.RedisDB), nil
	default:
		return nil, apperrors.NewConfiguration("unknown cache backend "+cfg.Backend, nil)
	}
}

// backendError logs a failed cache operation and wraps it as a cache error
func backendError(log *logger.Logger, backend, op, key string, err error) error {
	log.Warn().Err(err).Str("backend", backend).Str("op", op).Str("key", key).Msg("Cache operation failed")
	return apperrors.NewCache(backend, op+" "+key, err)
}
