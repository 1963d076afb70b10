package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stockperf/internal/config"
	"stockperf/internal/infrastructure"
)

// CachingProvider decorates a Provider with a redis cache of whole histories.
// Cache failures are logged and never fail a fetch.
type CachingProvider struct {
	inner     Provider
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    *slog.Logger
	metrics   *infrastructure.PipelineMetrics
}

var _ Provider = (*CachingProvider)(nil)

// NewCachingProvider wraps inner. A nil rdb bypasses the cache entirely.
// A non-positive ttl or empty namespace falls back to the defaults.
func NewCachingProvider(rdb *redis.Client, ttl time.Duration, namespace string, inner Provider, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *CachingProvider {
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	if namespace == "" {
		namespace = config.DefaultCacheNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}
	return &CachingProvider{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		logger:    infrastructure.WithComponent(logger, "price_cache"),
		metrics:   metrics,
	}
}

// Name implements Provider
func (c *CachingProvider) Name() string {
	return c.inner.Name()
}

// History implements Provider, checking redis before the wrapped provider
func (c *CachingProvider) History(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	if c.rdb == nil {
		return c.inner.History(ctx, ticker, start, end)
	}

	key := c.cacheKey(ticker, start, end)

	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil && len(b) > 0:
		var bars []Bar
		if err := json.Unmarshal(b, &bars); err == nil {
			c.metrics.RecordCacheLookup(ctx, "hit")
			c.logger.DebugContext(ctx, "Cache hit", slog.String("key", key), slog.Int("bars", len(bars)))
			return bars, nil
		}
		c.logger.WarnContext(ctx, "Deleting corrupt cache entry", slog.String("key", key))
		_ = c.rdb.Del(ctx, key).Err()
		c.metrics.RecordCacheLookup(ctx, "miss")
	case err == nil || errors.Is(err, redis.Nil):
		c.metrics.RecordCacheLookup(ctx, "miss")
	default:
		c.metrics.RecordCacheLookup(ctx, "error")
		c.logger.WarnContext(ctx, "Cache lookup failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	bars, err := c.inner.History(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	if len(bars) > 0 {
		if payload, err := json.Marshal(bars); err == nil {
			if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.logger.WarnContext(ctx, "Cache store failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
	}
	return bars, nil
}

// cacheKey is namespace:provider:ticker:start:end
func (c *CachingProvider) cacheKey(ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		c.namespace,
		safe(c.inner.Name()),
		safe(ticker),
		start.Format(config.DateLayout),
		end.Format(config.DateLayout),
	)
}

// safe escapes characters that are problematic for redis keys
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

// NewRedisClient connects to redis and pings it. An empty address returns a nil
// client, which disables caching.
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
