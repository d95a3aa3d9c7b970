package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/markowitz/internal/clientdata"
	"github.com/aristath/markowitz/internal/domain"
)

// CachedProvider serves price series from the client data cache and falls
// through to the wrapped provider on a miss. Upstream errors are returned
// unchanged and nothing is cached for them. Concurrent requests for the same
// key share one upstream fetch.
type CachedProvider struct {
	upstream Provider
	source   string
	repo     *clientdata.Repository
	ttl      time.Duration
	now      func() time.Time
	group    singleflight.Group
	log      zerolog.Logger
}

// NewCachedProvider wraps upstream. ttl <= 0 uses clientdata.TTLPriceSeries.
func NewCachedProvider(upstream Provider, repo *clientdata.Repository, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	source := "default"
	if n, ok := upstream.(Named); ok {
		source = n.Name()
	}
	return &CachedProvider{
		upstream: upstream,
		source:   source,
		repo:     repo,
		ttl:      ttl,
		now:      time.Now,
		log:      log.With().Str("component", "price_cache").Str("source", source).Logger(),
	}
}

// Name reports the wrapped source.
func (c *CachedProvider) Name() string {
	return c.source
}

// FetchPrices implements Provider. The shared upstream fetch is detached
// from any single caller's cancellation; each caller still returns as soon
// as its own context is done.
func (c *CachedProvider) FetchPrices(ctx context.Context, instrument string, start, end time.Time) (domain.PriceSeries, error) {
	key := clientdata.PriceKey(c.source, instrument, start, end)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), key, instrument, start, end)
	})

	select {
	case <-ctx.Done():
		return domain.PriceSeries{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.PriceSeries{}, res.Err
		}
		if res.Shared {
			c.log.Debug().Str("key", key).Msg("Coalesced concurrent price fetch")
		}
		return res.Val.(domain.PriceSeries), nil
	}
}

func (c *CachedProvider) fetch(ctx context.Context, key, instrument string, start, end time.Time) (domain.PriceSeries, error) {
	cached, err := c.repo.GetIfFresh(key)
	if err != nil {
		// A broken cache must not block the pipeline
		c.log.Warn().Err(err).Str("key", key).Msg("Price cache read failed")
	}
	if cached != nil {
		c.log.Debug().Str("key", key).Int("points", len(cached.Points)).Msg("Price cache HIT")
		return *cached, nil
	}

	series, err := c.upstream.FetchPrices(ctx, instrument, start, end)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	ttl := clientdata.PriceTTL(end, c.now(), c.ttl)
	if err := c.repo.Store(key, series, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Price cache write failed")
	} else {
		c.log.Debug().
			Str("key", key).
			Int("points", len(series.Points)).
			Dur("ttl", ttl).
			Msg("Price cache MISS, stored")
	}

	return series, nil
}

// Invalidate drops every cached window for instrument.
func (c *CachedProvider) Invalidate(instrument string) error {
	deleted, err := c.repo.DeleteInstrument(instrument)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", instrument, err)
	}
	c.log.Info().Str("instrument", instrument).Int64("deleted", deleted).Msg("Invalidated cached prices")
	return nil
}
