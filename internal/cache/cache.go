// Package cache stores fetched pages so repeat analyses of the same URL
// skip the network. Layers are tried in order and hits backfill faster
// layers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/rs/zerolog/log"
)

// Cache defines the interface for caching
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

const keyPrefix = "clearview:v1:"

// PageKey generates the cache key for a fetched page
func PageKey(url string) string {
	return Key("page", url)
}

// Key generates a namespaced cache key
func Key(kind, id string) string {
	hash := sha256.Sum256([]byte(id))
	return keyPrefix + kind + ":" + hex.EncodeToString(hash[:])
}

// New builds the configured cache stack: memory, then disk, then Redis
// when a URL is set. Returns nil when caching is disabled.
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	layers := []Cache{NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)}
	if cfg.DiskDir != "" {
		layers = append(layers, NewDiskCache(cfg.DiskDir, cfg.DiskTTL))
	}
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(cfg.RedisURL, cfg.DiskTTL)
		if err != nil {
			return nil, err
		}
		layers = append(layers, rc)
	}

	log.Debug().Int("layers", len(layers)).Msg("fetch cache enabled")
	return NewLayeredCache(layers...), nil
}
