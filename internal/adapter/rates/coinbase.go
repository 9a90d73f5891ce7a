// Package rates adapts external exchange-rate sources to ports.RateProvider.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const maxResponseBytes = 1 << 20

// errUpstream marks failures worth retrying: transport errors and 5xx.
var errUpstream = errors.New("rate upstream unavailable")

type exchangeRatesResponse struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}

// CoinbaseProvider reads spot rates from the Coinbase exchange-rates endpoint.
type CoinbaseProvider struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	breaker    *CircuitBreaker
	log        zerolog.Logger
}

// NewCoinbaseProvider creates a provider from the rates config section.
func NewCoinbaseProvider(cfg config.RatesConfig, log zerolog.Logger) *CoinbaseProvider {
	log = log.With().Str("component", "coinbase").Logger()
	return &CoinbaseProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: 200 * time.Millisecond,
		breaker:    NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerCooldown, log),
		log:        log,
	}
}

// GetRate returns how many units of to one unit of from buys.
func (p *CoinbaseProvider) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if !p.breaker.Allow() {
		return decimal.Zero, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(p.retryDelay, attempt-1)
			p.log.Debug().Int("attempt", attempt).Dur("delay", delay).Str("from", from).Str("to", to).Msg("retrying rate fetch")
			select {
			case <-ctx.Done():
				p.breaker.RecordFailure()
				return decimal.Zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		rate, err := p.fetch(ctx, from, to)
		if err == nil {
			p.breaker.RecordSuccess()
			return rate, nil
		}
		if errors.Is(err, ports.ErrRateNotFound) {
			// upstream is healthy, the pair just isn't listed
			p.breaker.RecordSuccess()
			return decimal.Zero, err
		}
		lastErr = err
		if !errors.Is(err, errUpstream) {
			break
		}
		p.log.Warn().Err(err).Int("attempt", attempt+1).Msg("rate fetch failed")
	}

	p.breaker.RecordFailure()
	return decimal.Zero, lastErr
}

func (p *CoinbaseProvider) fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	endpoint := p.baseURL + "/exchange-rates?currency=" + url.QueryEscape(from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("building rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", errUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return decimal.Zero, fmt.Errorf("%w: status %d", errUpstream, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		// Coinbase answers 400 for an unknown base currency.
		return decimal.Zero, ports.ErrRateNotFound
	case resp.StatusCode != http.StatusOK:
		return decimal.Zero, fmt.Errorf("unexpected rate status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: reading body: %v", errUpstream, err)
	}

	var payload exchangeRatesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("decoding rate response: %w", err)
	}

	raw, ok := payload.Data.Rates[to]
	if !ok {
		return decimal.Zero, ports.ErrRateNotFound
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing rate %q: %w", raw, err)
	}
	return rate, nil
}

// Breaker exposes the circuit state for health reporting.
func (p *CoinbaseProvider) Breaker() *CircuitBreaker {
	return p.breaker
}

// Close releases idle upstream connections.
func (p *CoinbaseProvider) Close() {
	p.httpClient.CloseIdleConnections()
}
