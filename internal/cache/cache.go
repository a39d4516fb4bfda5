// Package cache keeps fetched overlay data so toggling a layer back on does
// not hit the store again.
package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Cache stores opaque values by key. Implementations are safe for concurrent
// use. Misses and backend failures are both reported as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Delete(ctx context.Context, key string)
	Stats() Stats
	Close() error
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

func newStats(entries, maxEntries int, hits, misses int64) Stats {
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{Entries: entries, MaxEntries: maxEntries, Hits: hits, Misses: misses, HitRate: hitRate}
}

// TradeAreaKey is the cache key of a place's trade areas.
func TradeAreaKey(placeID string) string { return "trade-area:" + placeID }

// HomeZipcodesKey is the cache key of a place's joined home zipcodes.
func HomeZipcodesKey(placeID string) string { return "home-zipcodes:" + placeID }

// GetJSON decodes the cached value at key into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	data, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		zap.L().Warn("cache: dropping undecodable entry", zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		return v, false
	}
	return v, true
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, c Cache, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache: encode entry", zap.String("key", key), zap.Error(err))
		return
	}
	c.Set(ctx, key, data)
}
