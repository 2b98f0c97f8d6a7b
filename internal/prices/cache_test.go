package prices

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth-tracker/internal/models"
)

func TestIsValid_TTLBoundary(t *testing.T) {
	now := time.Now()
	ttl := 15 * time.Minute

	assert.True(t, IsValid(&models.CachedPrice{FetchedAt: now.Add(-14 * time.Minute)}, ttl, now))
	assert.False(t, IsValid(&models.CachedPrice{FetchedAt: now.Add(-16 * time.Minute)}, ttl, now))
	assert.False(t, IsValid(&models.CachedPrice{FetchedAt: now.Add(-ttl)}, ttl, now), "age equal to ttl is stale")
	assert.False(t, IsValid(nil, ttl, now))
}

// Property: a cached price is valid exactly when its age is below the TTL.
func TestProperty_CacheValidityMatchesAge(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	properties.Property("valid iff age < ttl", prop.ForAll(
		func(ttlMinutes int, ageSeconds int64) bool {
			ttl := time.Duration(ttlMinutes) * time.Minute
			age := time.Duration(ageSeconds) * time.Second
			cp := &models.CachedPrice{FetchedAt: now.Add(-age)}
			return IsValid(cp, ttl, now) == (age < ttl)
		},
		gen.IntRange(1, 120),
		gen.Int64Range(0, 3*60*60),
	))

	properties.TestingRun(t)
}

func TestMemoryCache_Upsert(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	got, err := c.GetCachedPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetCachedPrice(ctx, models.CachedPrice{Symbol: "AAPL", Price: decimal.NewFromInt(1)}))
	require.NoError(t, c.SetCachedPrice(ctx, models.CachedPrice{Symbol: "AAPL", Price: decimal.NewFromInt(2)}))

	got, err = c.GetCachedPrice(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.SetCachedPrice(ctx, models.CachedPrice{Symbol: fmt.Sprintf("S%d", i%10), Price: decimal.NewFromInt(int64(i))})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, c.Len())
}
