package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RateRefresher re-fetches a rate from upstream and overwrites the cached copy.
type RateRefresher interface {
	Refresh(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// RatePair is one from→to direction to keep warm.
type RatePair struct {
	From string
	To   string
}

func (p RatePair) String() string { return p.From + ":" + p.To }

// ParseRatePairs parses "BTC:USD" entries.
func ParseRatePairs(raw []string) ([]RatePair, error) {
	pairs := make([]RatePair, 0, len(raw))
	for _, entry := range raw {
		from, to, ok := strings.Cut(strings.TrimSpace(entry), ":")
		from = strings.ToUpper(strings.TrimSpace(from))
		to = strings.ToUpper(strings.TrimSpace(to))
		if !ok || from == "" || to == "" || from == to {
			return nil, fmt.Errorf("invalid rate pair %q, want FROM:TO", entry)
		}
		pairs = append(pairs, RatePair{From: from, To: to})
	}
	return pairs, nil
}

// RateWarmer refreshes a fixed set of pairs on an interval so ledger
// conversions usually hit the cache.
type RateWarmer struct {
	refresher RateRefresher
	pairs     []RatePair
	interval  time.Duration
	timeout   time.Duration
	scheduler gocron.Scheduler
	log       zerolog.Logger
}

// NewRateWarmer creates a warmer. timeout bounds each refresh round.
func NewRateWarmer(refresher RateRefresher, pairs []RatePair, interval, timeout time.Duration, log zerolog.Logger) (*RateWarmer, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	return &RateWarmer{
		refresher: refresher,
		pairs:     pairs,
		interval:  interval,
		timeout:   timeout,
		scheduler: sched,
		log:       log.With().Str("component", "rate_warmer").Logger(),
	}, nil
}

// Start schedules the refresh job, running it once immediately.
// It is a no-op when there are no pairs.
func (w *RateWarmer) Start() error {
	if len(w.pairs) == 0 {
		return nil
	}

	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RefreshAll() }),
		gocron.WithName("rate-warmer"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling rate warmer: %w", err)
	}

	w.scheduler.Start()
	w.log.Info().Int("pairs", len(w.pairs)).Dur("interval", w.interval).Msg("rate warmer started")
	return nil
}

// RefreshAll refreshes every pair once. Failures are logged and skipped.
// It returns how many pairs were refreshed.
func (w *RateWarmer) RefreshAll() int {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	refreshed := 0
	for _, p := range w.pairs {
		rate, err := w.refresher.Refresh(ctx, p.From, p.To)
		if err != nil {
			w.log.Warn().Err(err).Str("pair", p.String()).Msg("rate refresh failed")
			continue
		}
		refreshed++
		w.log.Debug().Str("pair", p.String()).Str("rate", rate.String()).Msg("rate refreshed")
	}
	return refreshed
}

// Stop waits for a running refresh and stops the scheduler.
func (w *RateWarmer) Stop() error {
	return w.scheduler.Shutdown()
}
