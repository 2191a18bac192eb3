package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// NoExpiration keeps an entry until it is replaced or deleted.
const NoExpiration = cache.NoExpiration

// CacheInterface defines the contract for cache implementations
type CacheInterface interface {
	// Set stores a value with the given lifetime. NoExpiration keeps it forever.
	Set(key string, value interface{}, duration time.Duration)

	// Get returns the value and true if present and not expired
	Get(key string) (interface{}, bool)

	Delete(key string)

	Close() error
}

// CacheService is the in-process cache backed by go-cache. Values are stored
// as given, so callers must not mutate what they put in or get out.
type CacheService struct {
	cache *cache.Cache
}

var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpirationSeconds, cleanUpIntervalSeconds int) *CacheService {
	defaultExpiration := time.Duration(defaultExpirationSeconds) * time.Second
	cleanUpInterval := time.Duration(cleanUpIntervalSeconds) * time.Second
	return &CacheService{cache: cache.New(defaultExpiration, cleanUpInterval)}
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	cs.cache.Set(key, value, duration)
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	return cs.cache.Get(key)
}

func (cs *CacheService) Delete(key string) {
	cs.cache.Delete(key)
}

// Close is a no-op for the in-memory cache
func (cs *CacheService) Close() error {
	return nil
}

// CachedAs fetches key and asserts its type, treating a type mismatch as a miss.
func CachedAs[T any](c CacheInterface, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
