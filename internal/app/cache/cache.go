package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is the narrow key-value contract the lookup path depends on.
// Implementations must never surface transport errors: a failed Get is a
// miss, a failed Set/Delete is a no-op, so the service stays correct (just
// slower) when the cache is down.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
}

// Entry is the minimal projection stored per resolved route.
type Entry struct {
	LinkID         string `json:"link_id"`
	DestinationURL string `json:"destination_url"`
}

// EncodeEntry serializes an entry for storage.
func EncodeEntry(e Entry) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeEntry parses a stored projection. Callers treat a decode failure as a
// cache miss.
func DecodeEntry(raw string) (Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// RedisCache adapts a go-redis client to the Cache contract.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache wraps client; a nil client yields a NoopCache so callers can
// construct unconditionally.
func NewRedisCache(client *redis.Client, logger *zap.Logger) Cache {
	if client == nil {
		return NewNoopCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Warn("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *RedisCache) Delete(ctx context.Context, key string) bool {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// NoopCache misses on every read and swallows every write. Used when no
// cache is configured or reachable at startup.
type NoopCache struct{}

// NewNoopCache returns the degraded, always-miss implementation.
func NewNoopCache() Cache {
	return &NoopCache{}
}

func (*NoopCache) Get(context.Context, string) (string, bool)             { return "", false }
func (*NoopCache) Set(context.Context, string, string, time.Duration) bool { return false }
func (*NoopCache) Delete(context.Context, string) bool                    { return false }
