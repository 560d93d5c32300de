package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"finledger/internal/log"
)

// RedisStore backs the cache with a hosted Redis instance. Every backend
// failure is logged and reported as a miss; the request path never blocks on
// a broken cache.
type RedisStore struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisStore creates a store for the given address. The connection is
// verified lazily; an unreachable Redis only costs cache misses.
func NewRedisStore(addr, password string, logger *log.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &RedisStore{
		client: client,
		logger: logger.WithComponent(log.ComponentCache),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Cache get failed, treating as miss", log.FieldCacheKey, key, log.FieldError, err)
		return "", false
	}
	return value, true
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "Cache set failed", log.FieldCacheKey, key, log.FieldError, err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.WarnContext(ctx, "Cache delete failed", log.FieldCacheKey, key, log.FieldError, err)
	}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
