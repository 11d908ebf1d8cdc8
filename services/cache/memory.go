package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryService implements CacheService in process memory
type MemoryService struct {
	store *gocache.Cache
}

// NewMemoryService creates an in-process cache
func NewMemoryService() *MemoryService {
	return &MemoryService{
		store: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

// Get retrieves a value from memory
func (m *MemoryService) Get(key string) ([]byte, error) {
	value, ok := m.store.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return value.([]byte), nil
}

// Set stores a copy of value with an expiration time
func (m *MemoryService) Set(key string, value []byte, expiration time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.store.Set(key, stored, expiration)
	return nil
}

// Delete removes a value from memory
func (m *MemoryService) Delete(key string) error {
	m.store.Delete(key)
	return nil
}
