package indicators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	"FinSignal/pkg/cache"
	applogger "FinSignal/pkg/logger"
)

const keyPrefix = "ind"

// Cache memoizes indicator sets keyed by (symbol, timeframe, last bar time).
// A newer bar produces a new key; Invalidate drops the older entries.
type Cache struct {
	engine *Engine
	store  cache.Service
	ttl    time.Duration
	logger *applogger.Logger
}

func NewCache(engine *Engine, store cache.Service, ttl time.Duration, logger *applogger.Logger) *Cache {
	return &Cache{engine: engine, store: store, ttl: ttl, logger: logger}
}

func cacheKey(symbol string, tf models.Timeframe, last time.Time) string {
	return cache.GenerateKeyWithParams(keyPrefix, symbol, tf, last.UTC().Unix())
}

// Get returns the cached set for the series or computes and stores it.
// Cache failures degrade to computing; they are never returned.
func (c *Cache) Get(ctx context.Context, series models.BarSeries) (*models.IndicatorSet, error) {
	last, ok := series.Last()
	if !ok {
		return c.engine.Compute(series)
	}
	key := cacheKey(series.Symbol, series.Timeframe, last.Timestamp)

	var set models.IndicatorSet
	err := c.store.Get(ctx, key, &set)
	if err == nil && set.Len == series.Len() {
		return &set, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) && c.logger != nil {
		c.logger.Warn("indicator cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	computed, err := c.engine.Compute(series)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, computed, c.ttl); err != nil && c.logger != nil {
		c.logger.Warn("indicator cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return computed, nil
}

// Invalidate removes every cached set for symbol and timeframe.
func (c *Cache) Invalidate(ctx context.Context, symbol string, tf models.Timeframe) error {
	pattern := cache.BuildPattern(cache.GenerateKeyWithParams(keyPrefix, symbol, tf) + ":")
	if err := c.store.DeleteByPattern(ctx, pattern); err != nil {
		return fmt.Errorf("invalidate %s %s: %w", symbol, tf, err)
	}
	return nil
}
