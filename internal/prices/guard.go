package prices

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/resilience"
)

// GuardedProvider short-circuits calls to a provider that keeps failing with
// transient errors, so a batch refresh falls back to cached prices instead of
// retrying every holding against a rate-limited upstream.
type GuardedProvider struct {
	Provider
	breaker *resilience.CircuitBreaker
	log     zerolog.Logger
}

// Guard wraps each provider with a breaker from registry.
func Guard(registry *resilience.CircuitBreakerRegistry, log zerolog.Logger, providers ...Provider) []Provider {
	out := make([]Provider, 0, len(providers))
	for _, p := range providers {
		out = append(out, &GuardedProvider{
			Provider: p,
			breaker:  registry.Get(p.Name()),
			log:      log.With().Str("provider", p.Name()).Logger(),
		})
	}
	return out
}

// BreakerConfig returns breaker settings that only count transient provider failures.
func BreakerConfig(cfg resilience.CircuitBreakerConfig) resilience.CircuitBreakerConfig {
	cfg.IsFailure = errors.IsRetryable
	return cfg
}

// FetchLivePrice calls the wrapped provider unless its circuit is open.
func (g *GuardedProvider) FetchLivePrice(ctx context.Context, symbol, exchange string) (*LivePrice, error) {
	before := g.breaker.State()
	live, err := resilience.ExecuteWithResult(g.breaker, func() (*LivePrice, error) {
		return g.Provider.FetchLivePrice(ctx, symbol, exchange)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}

	if after := g.breaker.State(); after != before {
		ev := g.log.Info()
		if after == resilience.CircuitOpen {
			ev = g.log.Warn()
		}
		ev.Str("from", string(before)).Str("to", string(after)).Msg("Provider circuit changed state")
	}
	return live, err
}
