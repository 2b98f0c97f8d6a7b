package store

import (
	"context"
	"path/filepath"
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

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return d
}

func createHolding(t *testing.T, s *SQLiteStore, h models.Holding) models.Holding {
	t.Helper()
	require.NoError(t, s.CreateHolding(context.Background(), &h))
	return h
}

func TestHoldings_FindBySymbolAndName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cba := createHolding(t, s, models.Holding{
		UserID: "u1", Type: models.HoldingStock, Symbol: strPtr("CBA.AX"), Exchange: strPtr("ASX"),
		Currency: models.AUD, Name: "CBA.AX", IsActive: true,
	})
	createHolding(t, s, models.Holding{
		UserID: "u1", Type: models.HoldingSuper, Currency: models.AUD, Name: "AustralianSuper", IsActive: true,
	})
	assert.NotEmpty(t, cba.ID)

	got, err := s.FindHoldingBySymbol(ctx, "u1", "cba.ax")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cba.ID, got.ID)
	assert.Equal(t, "ASX", got.ExchangeValue())
	assert.True(t, got.IsActive)
	assert.Nil(t, got.DeletedAt)

	got, err = s.FindHoldingByName(ctx, "u1", "australiansuper")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.HoldingSuper, got.Type)
	assert.Nil(t, got.Symbol)

	// other users never see the holding
	got, err = s.FindHoldingBySymbol(ctx, "u2", "CBA.AX")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHoldings_SoftDeletedAreIgnored(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	deleted := time.Now()
	createHolding(t, s, models.Holding{
		UserID: "u1", Type: models.HoldingCrypto, Symbol: strPtr("BTC"), Currency: models.USD,
		Name: "BTC", DeletedAt: &deleted,
	})

	got, err := s.FindHoldingBySymbol(ctx, "u1", "BTC")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := s.ListHoldings(ctx, HoldingFilter{UserID: "u1", IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].DeletedAt)
}

func TestListTradeableHoldings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	createHolding(t, s, models.Holding{UserID: "u1", Type: models.HoldingStock, Symbol: strPtr("AAPL"), Currency: models.USD, Name: "Apple", IsActive: true})
	createHolding(t, s, models.Holding{UserID: "u1", Type: models.HoldingCash, Currency: models.AUD, Name: "Savings", IsActive: true})
	createHolding(t, s, models.Holding{UserID: "u1", Type: models.HoldingETF, Symbol: strPtr("VAS.AX"), Currency: models.AUD, Name: "Sold off", IsActive: false})
	createHolding(t, s, models.Holding{UserID: "u2", Type: models.HoldingCrypto, Symbol: strPtr("ETH"), Currency: models.USD, Name: "ETH", IsActive: true})

	mine, err := s.ListTradeableHoldings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "AAPL", mine[0].SymbolValue())

	everyone, err := s.ListTradeableHoldings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, everyone, 2)
}

func TestTransactions_FindByKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	h := createHolding(t, s, models.Holding{UserID: "u1", Type: models.HoldingStock, Symbol: strPtr("VAS.AX"), Currency: models.AUD, Name: "VAS.AX"})

	txn := &models.Transaction{
		HoldingID: h.ID,
		Date:      mustDate(t, "2024-03-01"),
		Action:    models.ActionBuy,
		Quantity:  decimal.RequireFromString("1000.5"),
		UnitPrice: decimal.RequireFromString("95.12"),
		Fees:      decimal.RequireFromString("9.95"),
		Currency:  models.AUD,
		Notes:     strPtr("monthly"),
	}
	require.NoError(t, s.CreateTransaction(ctx, txn))
	assert.NotEmpty(t, txn.ID)

	found, err := s.FindTransactions(ctx, h.ID, mustDate(t, "2024-03-01"), models.ActionBuy)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].Quantity.Equal(decimal.RequireFromString("1000.5")))
	assert.True(t, found[0].UnitPrice.Equal(decimal.RequireFromString("95.12")))
	assert.Equal(t, "2024-03-01", found[0].Date.Format(models.DateLayout))
	require.NotNil(t, found[0].Notes)
	assert.Equal(t, "monthly", *found[0].Notes)

	found, err = s.FindTransactions(ctx, h.ID, mustDate(t, "2024-03-01"), models.ActionSell)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSnapshots_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	h := createHolding(t, s, models.Holding{UserID: "u1", Type: models.HoldingCash, Currency: models.AUD, Name: "Savings"})

	exists, err := s.SnapshotExists(ctx, h.ID, mustDate(t, "2024-01-31"))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateSnapshot(ctx, &models.Snapshot{
		HoldingID: h.ID, Date: mustDate(t, "2024-01-31"), Balance: decimal.RequireFromString("-250.75"), Currency: models.AUD,
	}))

	exists, err = s.SnapshotExists(ctx, h.ID, mustDate(t, "2024-01-31"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpsertContribution_UpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	h := createHolding(t, s, models.Holding{UserID: "u1", Type: models.HoldingSuper, Currency: models.AUD, Name: "Hostplus Super"})
	date := mustDate(t, "2024-02-29")

	require.NoError(t, s.UpsertContribution(ctx, &models.Contribution{
		HoldingID: h.ID, Date: date,
		EmployerContrib: decimal.NewNullDecimal(decimal.NewFromInt(500)),
	}))
	require.NoError(t, s.UpsertContribution(ctx, &models.Contribution{
		HoldingID: h.ID, Date: date,
		EmployerContrib: decimal.NewNullDecimal(decimal.NewFromInt(550)),
		EmployeeContrib: decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}))

	c, err := s.GetContribution(ctx, h.ID, date)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.EmployerContrib.Decimal.Equal(decimal.NewFromInt(550)))
	require.True(t, c.EmployeeContrib.Valid)
	assert.True(t, c.EmployeeContrib.Decimal.Equal(decimal.NewFromInt(100)))

	var rows int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contributions`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestPriceCache_UpsertAndMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetCachedPrice(ctx, "bitcoin")
	require.NoError(t, err)
	assert.Nil(t, got)

	fetched := time.UnixMilli(time.Now().UnixMilli())
	require.NoError(t, s.SetCachedPrice(ctx, models.CachedPrice{
		Symbol: "bitcoin", Price: decimal.NewFromInt(60000), Currency: models.USD,
		FetchedAt: fetched, Source: models.SourceCryptoProvider,
	}))
	require.NoError(t, s.SetCachedPrice(ctx, models.CachedPrice{
		Symbol: "bitcoin", Price: decimal.NewFromInt(61000), Currency: models.USD,
		ChangePercent: decimal.NewNullDecimal(decimal.RequireFromString("1.5")),
		FetchedAt:     fetched, Source: models.SourceCryptoProvider,
	}))

	got, err = s.GetCachedPrice(ctx, "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(61000)))
	assert.True(t, got.ChangePercent.Valid)
	assert.False(t, got.ChangeAbsolute.Valid)
	assert.True(t, got.FetchedAt.Equal(fetched))
	assert.Equal(t, models.SourceCryptoProvider, got.Source)
}

func TestNewSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networth.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetCachedPrice(context.Background(), models.CachedPrice{
		Symbol: "AAPL", Price: decimal.NewFromInt(1), Currency: models.USD, FetchedAt: time.Now(), Source: models.SourceStockProvider,
	}))
	require.NoError(t, s.Close())

	// schema creation is idempotent on reopen
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetCachedPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

// Property: cached prices survive a store round-trip without losing decimal precision.
func TestProperty_PriceCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("set then get returns the same price", prop.ForAll(
		func(units int64, exp int32, pct int64) bool {
			price := decimal.New(units, -exp)
			cp := models.CachedPrice{
				Symbol:        "SYM",
				Price:         price,
				Currency:      models.AUD,
				ChangePercent: decimal.NewNullDecimal(decimal.New(pct, -4)),
				FetchedAt:     time.UnixMilli(1_700_000_000_000),
				Source:        models.SourceStockProvider,
			}
			if err := s.SetCachedPrice(ctx, cp); err != nil {
				return false
			}
			got, err := s.GetCachedPrice(ctx, "SYM")
			if err != nil || got == nil {
				return false
			}
			return got.Price.Equal(price) && got.ChangePercent.Decimal.Equal(cp.ChangePercent.Decimal)
		},
		gen.Int64Range(1, 1_000_000_000),
		gen.Int32Range(0, 8),
		gen.Int64Range(-500_000, 500_000),
	))

	properties.TestingRun(t)
}
