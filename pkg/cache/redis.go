package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a fast-path lookaside for the hash→file-id dedup mapping.
// The database stays authoritative; cache misses and cache errors both fall
// through to it.
type RedisCache struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(host, port, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		DB:           0,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// GetFileID returns the cached file id for a content hash, if any.
func (r *RedisCache) GetFileID(ctx context.Context, audioHash string) (int64, bool, error) {
	key := dedupKey(audioHash)

	id, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get file id from Redis: %w", err)
	}

	return id, true, nil
}

// SetFileID caches the hash→id mapping with a TTL.
func (r *RedisCache) SetFileID(ctx context.Context, audioHash string, fileID int64, ttl time.Duration) error {
	key := dedupKey(audioHash)

	if err := r.client.Set(ctx, key, fileID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set file id in Redis: %w", err)
	}

	return nil
}

func dedupKey(audioHash string) string {
	return fmt.Sprintf("dedup:%s", audioHash)
}
