package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// LayeredCache checks layers fastest-first and backfills on hit
type LayeredCache struct {
	layers []Cache
}

// NewLayeredCache creates a cache over the given layers, fastest first
func NewLayeredCache(layers ...Cache) *LayeredCache {
	return &LayeredCache{layers: layers}
}

// Get returns the first hit and promotes it into the faster layers
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	for i, layer := range c.layers {
		val, found := layer.Get(ctx, key)
		if !found {
			continue
		}
		for _, faster := range c.layers[:i] {
			_ = faster.Set(ctx, key, val, 0) // default TTL
		}
		return val, true
	}
	return nil, false
}

// Set stores a value in every layer, returning the joined errors
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Set(ctx, key, value, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes a value from every layer
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear removes all values from every layer
func (c *LayeredCache) Clear(ctx context.Context) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every layer holding a connection
func (c *LayeredCache) Close() error {
	var errs []error
	for _, layer := range c.layers {
		if closer, ok := layer.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
