package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/tradeforge/conviction/internal/domain"
	"github.com/tradeforge/conviction/internal/metrics"
)

// CachedFetcher is a read-through Redis cache in front of another Fetcher.
// Cache failures are non-fatal: a broken cache degrades to pass-through.
type CachedFetcher struct {
	inner     Fetcher
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	metrics   *metrics.Registry
}

// NewCachedFetcher decorates inner with a Redis TTL cache. m may be nil.
func NewCachedFetcher(inner Fetcher, client *redis.Client, ttl time.Duration, m *metrics.Registry) *CachedFetcher {
	return &CachedFetcher{
		inner:     inner,
		client:    client,
		ttl:       ttl,
		keyPrefix: "conviction:series:",
		metrics:   m,
	}
}

func (c *CachedFetcher) key(seriesID string, window int) string {
	return fmt.Sprintf("%s%s:%d", c.keyPrefix, seriesID, window)
}

// Fetch serves from cache when possible, otherwise fetches and stores.
func (c *CachedFetcher) Fetch(ctx context.Context, seriesID string, window int) (ts domain.TimeSeries, err error) {
	key := c.key(seriesID, window)

	cached, getErr := c.client.Get(ctx, key).Bytes()
	if getErr == nil {
		if err := json.Unmarshal(cached, &ts); err == nil {
			c.metrics.RecordCacheEvent("hit")
			return ts, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		c.client.Del(ctx, key)
	} else if getErr != redis.Nil {
		log.Warn().Err(getErr).Str("key", key).Msg("series cache read failed")
	}
	c.metrics.RecordCacheEvent("miss")

	ts, err = c.inner.Fetch(ctx, seriesID, window)
	if err != nil {
		return ts, err
	}

	if payload, marshalErr := json.Marshal(ts); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			log.Warn().Err(setErr).Str("key", key).Msg("series cache write failed")
		}
	}
	return ts, nil
}
