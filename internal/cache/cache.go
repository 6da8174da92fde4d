package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// KeyPrefix namespaces every key written by this package
const KeyPrefix = "jurisdoc:v1:"

// Cache is a TTL byte cache. A miss and a backend failure both read as not found;
// the record store behind the cache is the source of truth.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RecordKey derives the cache key for a jurisdiction and topic
func RecordKey(key model.JurisdictionKey, topic string) string {
	raw := key.String() + "|" + strings.ToLower(strings.TrimSpace(topic))
	hash := sha256.Sum256([]byte(raw))
	return KeyPrefix + "record:" + hex.EncodeToString(hash[:])
}

// New builds the cache selected by cfg.Backend
func New(cfg model.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemoryCache(cfg.HotTTL, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(cfg.Dir, cfg.HotTTL), nil
	case "layered":
		return NewLayeredCache(cfg.HotTTL, cfg.Dir, cfg.RecordTTL), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error { return nil }

func (Noop) Delete(ctx context.Context, key string) error { return nil }

func (Noop) Clear(ctx context.Context) error { return nil }
