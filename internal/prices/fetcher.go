package prices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/logging"
	"networth-tracker/internal/models"
	"networth-tracker/internal/resilience"
	"networth-tracker/internal/symbols"
	"networth-tracker/pkg/utils"
)

// DefaultBatchConcurrency bounds concurrent provider calls during a batch fetch.
const DefaultBatchConcurrency = 5

// FetcherConfig holds price fetcher configuration.
type FetcherConfig struct {
	TTL              time.Duration
	Retry            utils.RetryConfig
	BatchConcurrency int
}

// DefaultFetcherConfig returns the default fetcher configuration.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		TTL:              DefaultTTL,
		Retry:            utils.DefaultRetryConfig(),
		BatchConcurrency: DefaultBatchConcurrency,
	}
}

// FetchOptions controls a single fetch.
type FetchOptions struct {
	// ForceRefresh skips the fresh-cache shortcut. A stale entry is still
	// used as a fallback when the live fetch fails.
	ForceRefresh bool
}

// HoldingLister lists the holdings a batch refresh should cover.
type HoldingLister interface {
	ListTradeableHoldings(ctx context.Context, userID string) ([]models.Holding, error)
}

// Fetcher resolves prices for holdings: cache first, then the routed provider with
// retry, then the last cached value when the provider keeps failing.
type Fetcher struct {
	cache     Cache
	providers map[models.PriceSource]Provider
	cfg       FetcherConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewFetcher creates a new price fetcher. Providers are registered by their Source.
func NewFetcher(cache Cache, providers []Provider, cfg FetcherConfig, log zerolog.Logger) *Fetcher {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	byKind := make(map[models.PriceSource]Provider, len(providers))
	for _, p := range providers {
		byKind[p.Source()] = p
	}
	return &Fetcher{
		cache:     cache,
		providers: byKind,
		cfg:       cfg,
		log:       log.With().Str("component", "price_fetcher").Logger(),
		now:       time.Now,
	}
}

// FetchPrice returns the price for a single holding.
//
// A fresh cache entry is returned without any external call unless ForceRefresh is set.
// When the live fetch fails after retries, any cached entry is returned with IsStale set
// and Error describing the failure; without one the provider error is returned.
func (f *Fetcher) FetchPrice(ctx context.Context, h models.Holding, opts FetchOptions) (*models.PriceResult, error) {
	if !h.Type.IsTradeable() {
		return nil, errors.NewHoldingError(h.ID, string(h.Type), errors.ErrNotTradeable)
	}
	symbol := h.SymbolValue()
	if symbol == "" {
		return nil, errors.NewHoldingError(h.ID, string(h.Type), errors.ErrMissingSymbol)
	}

	source, _ := Route(h.Type)
	provider, ok := f.providers[source]
	if !ok {
		return nil, fmt.Errorf("no price provider registered for %s", source)
	}

	key, err := symbols.Normalize(symbol, h.ExchangeValue(), h.Type)
	if err != nil {
		return nil, err
	}
	log := logging.WithSymbol(f.log, key)

	if !opts.ForceRefresh {
		if cached := f.readCache(ctx, log, key); IsValid(cached, f.cfg.TTL, f.now()) {
			log.Debug().Time("fetched_at", cached.FetchedAt).Msg("Cache hit")
			result := models.ResultFromCache(*cached, false, "")
			return &result, nil
		}
	}

	live, err := utils.RetryWithResult(ctx, f.retryConfig(log, provider), func() (*LivePrice, error) {
		return provider.FetchLivePrice(ctx, key, h.ExchangeValue())
	})
	if err != nil {
		// The fallback read must survive a cancelled request context.
		if cached := f.readCache(context.WithoutCancel(ctx), log, key); cached != nil {
			log.Warn().
				Err(err).
				Time("fetched_at", cached.FetchedAt).
				Msg("Live fetch failed, using stale cached price")
			result := models.ResultFromCache(*cached, true, describeFailure(err))
			return &result, nil
		}
		return nil, err
	}

	cp := models.CachedPrice{
		Symbol:         key,
		Price:          live.Price,
		Currency:       live.Currency,
		ChangePercent:  live.ChangePercent,
		ChangeAbsolute: live.ChangeAbsolute,
		FetchedAt:      f.now(),
		Source:         source,
	}
	if err := f.cache.SetCachedPrice(ctx, cp); err != nil {
		log.Warn().Err(err).Msg("Failed to cache price")
	}

	log.Debug().Str("price", cp.Price.String()).Msg("Fetched live price")
	result := models.ResultFromCache(cp, false, "")
	return &result, nil
}

// FetchPricesForHoldings fetches prices for every tradeable holding with a symbol.
// Fetches run concurrently up to the configured limit. Holdings whose fetch failed
// with nothing cached are left out of the result rather than failing the batch.
func (f *Fetcher) FetchPricesForHoldings(ctx context.Context, holdings []models.Holding, opts FetchOptions) map[string]models.PriceResult {
	var mu sync.Mutex
	results := make(map[string]models.PriceResult, len(holdings))

	p := pool.New().WithMaxGoroutines(f.cfg.BatchConcurrency)
	for _, h := range holdings {
		if !h.Type.IsTradeable() || h.SymbolValue() == "" {
			continue
		}
		h := h
		p.Go(func() {
			res, err := f.FetchPrice(ctx, h, opts)
			if err != nil {
				f.log.Warn().
					Err(err).
					Str("holding_id", h.ID).
					Str("symbol", h.SymbolValue()).
					Msg("Price unavailable")
				return
			}
			mu.Lock()
			results[h.ID] = *res
			mu.Unlock()
		})
	}
	p.Wait()

	f.log.Info().
		Int("holdings", len(holdings)).
		Int("priced", len(results)).
		Msg("Batch price fetch completed")

	return results
}

// RefreshUser fetches prices for the user's active tradeable holdings.
// An empty userID covers every user.
func (f *Fetcher) RefreshUser(ctx context.Context, lister HoldingLister, userID string, opts FetchOptions) (map[string]models.PriceResult, error) {
	holdings, err := lister.ListTradeableHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	return f.FetchPricesForHoldings(ctx, holdings, opts), nil
}

func (f *Fetcher) readCache(ctx context.Context, log zerolog.Logger, key string) *models.CachedPrice {
	cached, err := f.cache.GetCachedPrice(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read price cache")
		return nil
	}
	return cached
}

func (f *Fetcher) retryConfig(log zerolog.Logger, provider Provider) utils.RetryConfig {
	cfg := f.cfg.Retry
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = errors.IsRetryable
	}
	hook := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn().
			Err(err).
			Str("provider", provider.Name()).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Price fetch failed, retrying")
		if hook != nil {
			hook(attempt, err, delay)
		}
	}
	return cfg
}

// describeFailure renders a provider failure for display next to a stale price.
func describeFailure(err error) string {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "Price provider is paused after repeated failures; showing last known price"
	}
	var pe *errors.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case errors.KindRateLimited:
			return fmt.Sprintf("Price provider %s is rate limiting requests; showing last known price", pe.Provider)
		case errors.KindNetworkError:
			return fmt.Sprintf("Could not reach price provider %s; showing last known price", pe.Provider)
		case errors.KindNotFound:
			return fmt.Sprintf("Price provider %s has no data for %s; showing last known price", pe.Provider, pe.Symbol)
		case errors.KindHTTPError:
			return fmt.Sprintf("Price provider %s returned status %d; showing last known price", pe.Provider, pe.StatusCode)
		}
	}
	return fmt.Sprintf("Live price unavailable (%v); showing last known price", err)
}
