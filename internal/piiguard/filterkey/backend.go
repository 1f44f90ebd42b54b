package filterkey

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ExpiringStore is the key-value primitive the Store is built on. Every entry
// carries its own TTL; an expired entry must never be returned by Get even if
// it has not been evicted yet.
type ExpiringStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Touch resets the TTL of an existing entry and reports whether it existed.
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Remove(ctx context.Context, key string) error
}

// MemoryStore keeps entries in process memory using go-cache.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-process store. A positive cleanupInterval
// starts go-cache's janitor; with zero, expired entries are only evicted
// when they are next looked up.
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(defaultTTL, cleanupInterval)}
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.cache.Set(key, bytes.Clone(value), ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		// Drop the entry if it is merely expired.
		m.cache.Delete(key)
		return nil, false, nil
	}

	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("memory store: unexpected value type %T", v)
	}
	return bytes.Clone(b), true, nil
}

func (m *MemoryStore) Touch(_ context.Context, key string, ttl time.Duration) (bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return false, nil
	}

	// Replace fails if the entry was removed or expired in the meantime.
	if err := m.cache.Replace(key, v, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Len reports the number of physically held entries, expired ones included.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}

// RedisStore keeps entries in Redis so keys survive across dashboard replicas.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

func (r *RedisStore) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.PExpire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis pexpire: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
