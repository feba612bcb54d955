// Package cache stores raw provider responses for a short TTL so repeated
// analyses of one token do not spend upstream quota.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sawpanic/aftershock/internal/config"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A miss is reported as found=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the backend selected in the cache section
func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "memory", "":
		return NewTTLCache(int64(cfg.MaxEntries)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
