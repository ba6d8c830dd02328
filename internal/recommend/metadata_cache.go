// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/cache"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
)

// DefaultMetadataCacheSize matches the number of items a full batch touches
// comfortably while bounding memory.
const DefaultMetadataCacheSize = 1000

// MetadataCache memoizes MetadataService.GetItem for the life of the process.
// A key is fetched upstream at most once while cached; failed lookups are
// remembered as absent. It is the only state shared between concurrent
// pipeline runs.
type MetadataCache struct {
	memo   *cache.Memo[*Metadata]
	logger zerolog.Logger
}

// NewMetadataCache wraps svc with a bounded single-flight cache.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMetadataCache(svc MetadataService, capacity int, logger zerolog.Logger) *MetadataCache {
	if capacity <= 0 {
		capacity = DefaultMetadataCacheSize
	}
	mc := &MetadataCache{logger: logger.With().Str("component", "metadata_cache").Logger()}

	load := func(ctx context.Context, key string) (*Metadata, error) {
		m, err := svc.GetItem(ctx, ItemID(key))
		if err != nil {
			mc.logger.Debug().Err(err).Str("item_id", key).Msg("metadata lookup failed, caching as absent")
			return nil, err
		}
		return m, nil
	}

	mc.memo = cache.NewMemo[*Metadata](capacity, load,
		cache.WithHitHook[*Metadata](metrics.MetadataCacheHits.Inc),
		cache.WithMissHook[*Metadata](metrics.MetadataCacheMisses.Inc),
	)
	return mc
}

// Lookup returns metadata for id, or false when it is unknown or its lookup
// failed.
func (c *MetadataCache) Lookup(ctx context.Context, id ItemID) (*Metadata, bool) {
	m, ok := c.memo.Get(ctx, string(id))
	metrics.MetadataCacheEntries.Set(float64(c.memo.Len()))
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

// Len returns the number of memoized keys.
func (c *MetadataCache) Len() int {
	return c.memo.Len()
}

// Stats returns hit, miss and eviction counters.
func (c *MetadataCache) Stats() cache.Stats {
	return c.memo.Stats()
}
