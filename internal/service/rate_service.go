package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// rateScale is the precision of an inverted rate.
const rateScale int32 = 16

var errNonPositiveRate = errors.New("provider returned a non-positive rate")

// resolveRate asks for from→to and falls back to 1/(to→from). Rates that
// are zero or negative count as unavailable.
func resolveRate(ctx context.Context, provider ports.RateProvider, from, to string, log zerolog.Logger) (decimal.Decimal, error) {
	direct, err := provider.GetRate(ctx, from, to)
	if err == nil && direct.IsPositive() {
		return direct, nil
	}
	if err == nil {
		err = errNonPositiveRate
	}
	log.Debug().Err(err).Str("from", from).Str("to", to).Msg("direct rate unavailable, trying inverse")

	inverse, ierr := provider.GetRate(ctx, to, from)
	if ierr == nil && inverse.IsPositive() {
		return decimal.NewFromInt(1).DivRound(inverse, rateScale), nil
	}
	if ierr == nil {
		ierr = errNonPositiveRate
	}

	return decimal.Zero, apperror.ErrRateUnavailable(fmt.Errorf("%s/%s: %w", from, to, errors.Join(err, ierr)))
}

// RateServiceImpl implements ports.RateService.
type RateServiceImpl struct {
	currencyRepo ports.CurrencyRepository
	rates        ports.RateProvider
	now          func() time.Time
	log          zerolog.Logger
}

// NewRateService creates a new RateServiceImpl.
func NewRateService(currencyRepo ports.CurrencyRepository, rates ports.RateProvider, log zerolog.Logger) *RateServiceImpl {
	return &RateServiceImpl{
		currencyRepo: currencyRepo,
		rates:        rates,
		now:          func() time.Time { return time.Now().UTC() },
		log:          log,
	}
}

// ListCurrencies returns the catalog.
func (s *RateServiceImpl) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	currencies, err := s.currencyRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list currencies: %w", err))
	}
	if currencies == nil {
		currencies = []domain.Currency{}
	}
	return currencies, nil
}

// Quote returns the spot rate for base→target. Both codes must be in the catalog.
func (s *RateServiceImpl) Quote(ctx context.Context, base, target string) (*ports.Quote, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	target = strings.ToUpper(strings.TrimSpace(target))
	if base == target {
		return nil, apperror.ErrInvalidRequest("base and target currencies must differ")
	}

	for _, code := range []string{base, target} {
		c, err := s.currencyRepo.GetByCode(ctx, code)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("get currency %s: %w", code, err))
		}
		if c == nil {
			return nil, apperror.ErrNotFound("currency " + code)
		}
	}

	rate, err := resolveRate(ctx, s.rates, base, target, s.log)
	if err != nil {
		return nil, err
	}

	return &ports.Quote{
		Base:      base,
		Target:    target,
		Rate:      rate,
		Timestamp: s.now(),
	}, nil
}
