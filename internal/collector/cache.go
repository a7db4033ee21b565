package collector

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"PriceScope/internal/model"
)

// CachedFetcher is a read-through Redis cache in front of another Fetcher.
// Cache failures are logged and never fail the fetch.
type CachedFetcher struct {
	Next   Fetcher
	Client *redis.Client
	TTL    time.Duration
	Log    zerolog.Logger
}

// NewCachedFetcher wraps next with a Redis cache.
func NewCachedFetcher(next Fetcher, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{Next: next, Client: client, TTL: ttl, Log: log}
}

func (c *CachedFetcher) Name() string { return c.Next.Name() + "+redis" }

// CacheKey builds the Redis key for a request served by the named provider.
func CacheKey(provider string, req HistoryRequest) string {
	return "pricescope:bars:" + provider + ":" + strings.ToUpper(req.Symbol) + ":" + req.Label()
}

func (c *CachedFetcher) FetchHistory(ctx context.Context, req HistoryRequest) (*model.PriceSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := CacheKey(c.Next.Name(), req)

	data, err := c.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		series, derr := decodeSeries(data)
		if derr == nil {
			c.Log.Debug().Str("key", key).Msg("bar cache hit")
			return series, nil
		}
		c.Log.Warn().Err(derr).Str("key", key).Msg("discarding corrupt cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.Log.Warn().Err(err).Str("key", key).Msg("bar cache read failed")
	}

	series, err := c.Next.FetchHistory(ctx, req)
	if err != nil {
		return nil, err
	}
	if data, err := encodeSeries(series); err == nil {
		if err := c.Client.Set(ctx, key, data, c.TTL).Err(); err != nil {
			c.Log.Warn().Err(err).Str("key", key).Msg("bar cache write failed")
		}
	}
	return series, nil
}

func encodeSeries(s *model.PriceSeries) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSeries(data []byte) (*model.PriceSeries, error) {
	var s model.PriceSeries
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
