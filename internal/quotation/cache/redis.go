// Package cache keeps HSN GST rates in Redis so line prefill does not hit the
// database for every line of every quotation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "quotation:hsn_gst:"

// New creates a Redis client and checks that it answers.
func New(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// GSTCache is a read-through cache of GST percentages by HSN code. A nil
// *GSTCache, or one without a client, always calls the loader.
type GSTCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	// loads collapses concurrent misses on the same code into one loader call.
	loads singleflight.Group
}

func NewGSTCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *GSTCache {
	return &GSTCache{client: client, ttl: ttl, logger: logger.Named("gst_cache")}
}

// Rate returns the cached rate for hsn or loads and stores it. Redis failures
// are logged and degrade to the loader; loader errors are returned as is.
func (c *GSTCache) Rate(ctx context.Context, hsn string, loader func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key := keyPrefix + hsn
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		rate, perr := decimal.NewFromString(raw)
		if perr == nil {
			return rate, nil
		}
		c.logger.Warn("discarding malformed cached rate", zap.String("hsn", hsn), zap.String("value", raw))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("gst cache read failed", zap.String("hsn", hsn), zap.Error(err))
	}

	// The shared load outlives any single caller; each caller still stops
	// waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.loads.DoChan(hsn, func() (interface{}, error) {
		rate, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(loadCtx, key, rate.String(), c.ttl).Err(); err != nil {
			c.logger.Warn("gst cache write failed", zap.String("hsn", hsn), zap.Error(err))
		}
		return rate, nil
	})
	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	}
}

// Invalidate drops the cached rate of hsn.
func (c *GSTCache) Invalidate(ctx context.Context, hsn string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, keyPrefix+hsn).Err()
}
