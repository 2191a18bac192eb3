package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDocumentStore shares the document between service instances. Keys are
// namespaced with Prefix and never expire; a new run overwrites them.
type RedisDocumentStore struct {
	client *redis.Client
	Prefix string
}

var _ DocumentStore = (*RedisDocumentStore)(nil)

func NewRedisDocumentStore(client *redis.Client, prefix string) *RedisDocumentStore {
	return &RedisDocumentStore{client: client, Prefix: prefix}
}

func (s *RedisDocumentStore) Backend() string {
	return "redis"
}

func (s *RedisDocumentStore) Put(ctx context.Context, key string, body []byte) error {
	if err := s.client.Set(ctx, s.Prefix+key, body, 0).Err(); err != nil {
		return fmt.Errorf("redis store: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := s.client.Get(ctx, s.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: get %s: %w", key, err)
	}
	return body, nil
}

func (s *RedisDocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisDocumentStore) Close() error {
	return s.client.Close()
}
