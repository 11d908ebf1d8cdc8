package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"sjsage522/wikicatalog/logger"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
	log    *logger.Logger
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 2 * time.Second
	return &MemcacheService{client: client, log: logger.ForCache()}
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, backendError(m.log, "memcache", "get", key, err)
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time.
// Memcache counts expirations in whole seconds, so sub-second TTLs round up.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	seconds := int32((expiration + time.Second - 1) / time.Second)
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: seconds,
	})
	if err != nil {
		return backendError(m.log, "memcache", "set", key, err)
	}
	return nil
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if err == nil || errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return backendError(m.log, "memcache", "delete", key, err)
}
