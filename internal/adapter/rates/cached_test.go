package rates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/adapter/rates"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCachedProvider_Hit(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockRateProvider(ctrl)
	cache := mocks.NewMockRateCache(ctrl)

	cache.EXPECT().Get(gomock.Any(), "BTC", "USD").Return(decimal.NewFromInt(60000), true, nil)

	p := rates.NewCachedProvider(upstream, cache, time.Minute, zerolog.Nop())
	rate, err := p.GetRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60000).Equal(rate))
}

func TestCachedProvider_MissFillsCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockRateProvider(ctrl)
	cache := mocks.NewMockRateCache(ctrl)
	rate := decimal.RequireFromString("5.1")

	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), "USD", "BRL").Return(decimal.Zero, false, nil),
		upstream.EXPECT().GetRate(gomock.Any(), "USD", "BRL").Return(rate, nil),
		cache.EXPECT().Set(gomock.Any(), "USD", "BRL", rate, 30*time.Second).Return(nil),
	)

	p := rates.NewCachedProvider(upstream, cache, 30*time.Second, zerolog.Nop())
	got, err := p.GetRate(context.Background(), "USD", "BRL")
	require.NoError(t, err)
	assert.True(t, rate.Equal(got))
}

func TestCachedProvider_CacheFailureBypassed(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockRateProvider(ctrl)
	cache := mocks.NewMockRateCache(ctrl)
	rate := decimal.RequireFromString("0.92")

	cache.EXPECT().Get(gomock.Any(), "USD", "EUR").Return(decimal.Zero, false, errors.New("redis down"))
	upstream.EXPECT().GetRate(gomock.Any(), "USD", "EUR").Return(rate, nil)
	cache.EXPECT().Set(gomock.Any(), "USD", "EUR", rate, time.Minute).Return(errors.New("redis down"))

	p := rates.NewCachedProvider(upstream, cache, time.Minute, zerolog.Nop())
	got, err := p.GetRate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(got))
}

func TestCachedProvider_UpstreamErrorNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	upstream := mocks.NewMockRateProvider(ctrl)
	cache := mocks.NewMockRateCache(ctrl)

	cache.EXPECT().Get(gomock.Any(), "SOL", "XYZ").Return(decimal.Zero, false, nil)
	upstream.EXPECT().GetRate(gomock.Any(), "SOL", "XYZ").Return(decimal.Zero, ports.ErrRateNotFound)

	p := rates.NewCachedProvider(upstream, cache, time.Minute, zerolog.Nop())
	_, err := p.GetRate(context.Background(), "SOL", "XYZ")
	assert.ErrorIs(t, err, ports.ErrRateNotFound)
}
