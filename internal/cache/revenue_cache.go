package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alimgiray/newsletter-manager/pkg/config"
	"github.com/alimgiray/newsletter-manager/pkg/logger"
)

const (
	revenueKey = "newsletter:partner_revenue"
	// emptyField marks a cached aggregate that has no partners, so an empty
	// result is still a cache hit
	emptyField = "__empty__"
)

// RevenueLoader computes the partner revenue aggregate from the database
type RevenueLoader func(ctx context.Context) (map[string]float64, error)

// RevenueCache keeps the partner revenue aggregate in a Redis hash for a
// short time. A nil client turns it into a pass-through.
type RevenueCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient connects to cfg.URL. An empty URL disables the cache and
// returns a nil client.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewRevenueCache(rdb *redis.Client, ttl time.Duration) *RevenueCache {
	return &RevenueCache{rdb: rdb, ttl: ttl}
}

// PartnerRevenue returns the cached aggregate or calls load and stores its
// result. Redis failures are logged and fall back to load.
func (c *RevenueCache) PartnerRevenue(ctx context.Context, load RevenueLoader) (map[string]float64, error) {
	if c == nil || c.rdb == nil {
		return load(ctx)
	}

	cached, err := c.rdb.HGetAll(ctx, revenueKey).Result()
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to read revenue cache")
		return load(ctx)
	}

	if len(cached) > 0 {
		revenues, ok := decodeRevenues(cached)
		if ok {
			return revenues, nil
		}
		logger.FromContext(ctx).Warn("Discarding malformed revenue cache entry")
	}

	revenues, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, revenues); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to write revenue cache")
	}

	return revenues, nil
}

func (c *RevenueCache) store(ctx context.Context, revenues map[string]float64) error {
	fields := make(map[string]interface{}, len(revenues)+1)
	fields[emptyField] = "1"
	for partner, revenue := range revenues {
		fields[partner] = strconv.FormatFloat(revenue, 'f', -1, 64)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, revenueKey)
		pipe.HSet(ctx, revenueKey, fields)
		pipe.Expire(ctx, revenueKey, c.ttl)
		return nil
	})
	return err
}

func decodeRevenues(cached map[string]string) (map[string]float64, bool) {
	revenues := make(map[string]float64, len(cached))
	for partner, raw := range cached {
		if partner == emptyField {
			continue
		}
		revenue, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		revenues[partner] = revenue
	}
	return revenues, true
}
