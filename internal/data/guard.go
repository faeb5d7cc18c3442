package data

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tradeforge/conviction/internal/domain"
)

// GuardConfig tunes the guarded fetcher. Zero values pick the defaults.
type GuardConfig struct {
	Name             string
	RPS              float64
	Burst            int
	BreakerInterval  time.Duration
	BreakerTimeout   time.Duration
	FailureThreshold uint32
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.Name == "" {
		c.Name = "fetcher"
	}
	if c.RPS <= 0 {
		c.RPS = 10
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.BreakerInterval <= 0 {
		c.BreakerInterval = 60 * time.Second
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	return c
}

// GuardedFetcher wraps a Fetcher with a token-bucket rate limit and a
// circuit breaker. When the breaker is open, fetches fail fast and the
// engine records the affected indicators as missing instead of waiting out
// a dead source.
type GuardedFetcher struct {
	inner   Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedFetcher decorates inner with the configured guards.
func NewGuardedFetcher(inner Fetcher, cfg GuardConfig) *GuardedFetcher {
	cfg = cfg.withDefaults()
	settings := gobreaker.Settings{
		Name:     cfg.Name,
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("fetch breaker state change")
		},
	}
	return &GuardedFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Fetch waits for a rate token, then executes the inner fetch through the
// circuit breaker.
func (g *GuardedFetcher) Fetch(ctx context.Context, seriesID string, window int) (domain.TimeSeries, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.TimeSeries{}, err
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Fetch(ctx, seriesID, window)
	})
	if err != nil {
		return domain.TimeSeries{}, err
	}
	return out.(domain.TimeSeries), nil
}
