package ingest

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rickgao/insider-trades/internal/model"
)

// CachedPrices memoizes a PriceFetcher by symbol and window. Empty series are
// cached too; errors are not.
type CachedPrices struct {
	next  PriceFetcher
	cache *cache.Cache
}

// NewCachedPrices wraps next with a cache whose entries live for ttl.
func NewCachedPrices(next PriceFetcher, ttl time.Duration) *CachedPrices {
	return &CachedPrices{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// History implements PriceFetcher.
func (c *CachedPrices) History(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	key := symbol + "|" + start.Format(model.DateLayout) + "|" + end.Format(model.DateLayout)
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.PriceBar), nil
	}

	bars, err := c.next.History(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(key, bars)
	return bars, nil
}

// Len returns the number of cached series, including expired ones not yet evicted.
func (c *CachedPrices) Len() int {
	return c.cache.ItemCount()
}
