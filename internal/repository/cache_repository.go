package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

const defaultCacheNamespace = "attendance"

// CacheRepository keeps JSON snapshots, such as the latest absence report, in
// Redis. Keys are prefixed with a namespace so several kiosks can share one
// server. A nil client behaves as an always-empty cache.
type CacheRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewCacheRepository builds the repository. An empty namespace means
// "attendance".
func NewCacheRepository(client *redis.Client, namespace string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if namespace == "" {
		namespace = defaultCacheNamespace
	}
	return &CacheRepository{client: client, prefix: namespace + ":", logger: logger}
}

// Key returns the Redis key used for key.
func (r *CacheRepository) Key(key string) string {
	return r.prefix + key
}

// Get decodes the snapshot under key into dest. It returns ErrCacheMiss when
// the key is absent and ErrCacheCorrupt when the stored bytes do not decode.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, r.Key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", r.Key(key), err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.WrapAs(appErrors.ErrCacheCorrupt, err, "")
	}
	return nil
}

// Set stores value under key for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	return r.client.Set(ctx, r.Key(key), payload, ttl).Err()
}

// Delete drops keys.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, r.Key(key))
	}
	return r.client.Del(ctx, full...).Err()
}

// Close releases the Redis connection.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	r.logger.Debug("closing redis client")
	return r.client.Close()
}
