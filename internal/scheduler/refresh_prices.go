package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"networth-tracker/internal/models"
	"networth-tracker/internal/prices"
)

// RefreshPricesJobName is the name the price refresh is registered under.
const RefreshPricesJobName = "refresh-prices"

// Refresher refreshes prices for a user's tradeable holdings; an empty user means everyone.
type Refresher interface {
	RefreshUser(ctx context.Context, lister prices.HoldingLister, userID string, opts prices.FetchOptions) (map[string]models.PriceResult, error)
}

// RefreshPricesJob warms the price cache for every tradeable holding.
// Fresh cache entries are left alone so provider calls follow the cache TTL.
type RefreshPricesJob struct {
	refresher Refresher
	lister    prices.HoldingLister
	timeout   time.Duration
	log       zerolog.Logger
	running   sync.Mutex
}

// RefreshPricesConfig holds configuration for the price refresh job
type RefreshPricesConfig struct {
	Refresher Refresher
	Lister    prices.HoldingLister
	Timeout   time.Duration
	Log       zerolog.Logger
}

// NewRefreshPricesJob creates a new price refresh job
func NewRefreshPricesJob(cfg RefreshPricesConfig) *RefreshPricesJob {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &RefreshPricesJob{
		refresher: cfg.Refresher,
		lister:    cfg.Lister,
		timeout:   cfg.Timeout,
		log:       cfg.Log.With().Str("job", RefreshPricesJobName).Logger(),
	}
}

// Name returns the job name
func (j *RefreshPricesJob) Name() string {
	return RefreshPricesJobName
}

// Run refreshes all holdings. Overlapping runs are skipped.
func (j *RefreshPricesJob) Run() error {
	if !j.running.TryLock() {
		j.log.Warn().Msg("Previous price refresh still running, skipping")
		return nil
	}
	defer j.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	results, err := j.refresher.RefreshUser(ctx, j.lister, "", prices.FetchOptions{})
	if err != nil {
		return err
	}

	stale := 0
	for _, r := range results {
		if r.IsStale {
			stale++
		}
	}

	j.log.Info().
		Int("prices", len(results)).
		Int("stale", stale).
		Dur("duration", time.Since(start)).
		Msg("Price refresh completed")

	return nil
}
