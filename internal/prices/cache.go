package prices

import (
	"context"
	"sync"
	"time"

	"networth-tracker/internal/models"
)

// DefaultTTL is how long a cached price counts as fresh.
const DefaultTTL = 15 * time.Minute

// Cache stores the last fetched price per normalized symbol.
// GetCachedPrice returns nil, nil when nothing is cached. SetCachedPrice upserts by symbol.
type Cache interface {
	GetCachedPrice(ctx context.Context, symbol string) (*models.CachedPrice, error)
	SetCachedPrice(ctx context.Context, price models.CachedPrice) error
}

// IsValid reports whether a cached price is younger than ttl at now.
// Stale entries are kept; validity is only judged at read time.
func IsValid(cp *models.CachedPrice, ttl time.Duration, now time.Time) bool {
	if cp == nil {
		return false
	}
	return now.Sub(cp.FetchedAt) < ttl
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu     sync.RWMutex
	prices map[string]models.CachedPrice
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{prices: make(map[string]models.CachedPrice)}
}

// GetCachedPrice implements Cache.
func (c *MemoryCache) GetCachedPrice(_ context.Context, symbol string) (*models.CachedPrice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.prices[symbol]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

// SetCachedPrice implements Cache.
func (c *MemoryCache) SetCachedPrice(_ context.Context, price models.CachedPrice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[price.Symbol] = price
	return nil
}

// Len returns the number of cached symbols.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prices)
}
