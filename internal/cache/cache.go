// Package cache provides a small key-value cache with per-entry TTL and
// JSON helpers. Values are opaque bytes so that the in-memory and Redis
// backends are interchangeable.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a get/set-with-TTL key-value store.
// Get reports a miss with found == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// GetJSON reads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var v T

	raw, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return v, false, err
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("failed to decode cached %q: %w", key, err)
	}
	return v, true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q for cache: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Loader memoizes expensive loads in a Cache. Concurrent loads of the same
// key share a single call.
type Loader struct {
	cache Cache
	group singleflight.Group
}

// NewLoader creates a Loader backed by c.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// Cache returns the underlying cache.
func (l *Loader) Cache() Cache {
	return l.cache
}

// Remember returns the cached value of key, calling load on a miss.
// Only successful loads are stored. Cache failures are logged and the load
// result is returned regardless, so a broken cache degrades to no cache.
func Remember[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	cached, found, err := GetJSON[T](ctx, l.cache, key)
	if err != nil {
		slog.Warn("cache read failed", slog.String("op", "cache.Remember"), slog.String("key", key), slog.String("err", err.Error()))
	}
	if found {
		return cached, nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		if err := SetJSON(ctx, l.cache, key, value, ttl); err != nil {
			slog.Warn("cache write failed", slog.String("op", "cache.Remember"), slog.String("key", key), slog.String("err", err.Error()))
		}
		return value, nil
	})

	value, _ := v.(T)
	return value, err
}
