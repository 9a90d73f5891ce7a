package rates

import (
	"context"
	"time"

	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CachedProvider serves rates from a RateCache and falls through to next on
// a miss. A failing cache degrades to direct upstream calls.
type CachedProvider struct {
	next  ports.RateProvider
	cache ports.RateCache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider wraps next with cache.
func NewCachedProvider(next ports.RateProvider, cache ports.RateCache, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "rate_cache").Logger(),
	}
}

func (p *CachedProvider) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	rate, ok, err := p.cache.Get(ctx, from, to)
	if err != nil {
		p.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("rate cache read failed")
	} else if ok {
		return rate, nil
	}

	return p.Refresh(ctx, from, to)
}

// Refresh fetches from upstream and overwrites the cached value.
func (p *CachedProvider) Refresh(ctx context.Context, from, to string) (decimal.Decimal, error) {
	rate, err := p.next.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	if err := p.cache.Set(ctx, from, to, rate, p.ttl); err != nil {
		p.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("rate cache write failed")
	}
	return rate, nil
}
