// Package prices fetches live market prices and keeps the last known price per symbol.
package prices

import (
	"context"

	"github.com/shopspring/decimal"

	"networth-tracker/internal/models"
)

// LivePrice is a single quote returned by a provider.
type LivePrice struct {
	Price          decimal.Decimal
	Currency       models.Currency
	ChangePercent  decimal.NullDecimal
	ChangeAbsolute decimal.NullDecimal
}

// Provider fetches the current price of one normalized symbol.
type Provider interface {
	Name() string
	Source() models.PriceSource
	FetchLivePrice(ctx context.Context, symbol, exchange string) (*LivePrice, error)
}

// Route selects the provider family for a holding type.
func Route(t models.HoldingType) (models.PriceSource, bool) {
	switch t {
	case models.HoldingStock, models.HoldingETF:
		return models.SourceStockProvider, true
	case models.HoldingCrypto:
		return models.SourceCryptoProvider, true
	}
	return "", false
}

var hundred = decimal.NewFromInt(100)

// DeriveChangeAbsolute recovers the absolute 24h change from a price and its percentage change.
func DeriveChangeAbsolute(price decimal.Decimal, pct decimal.NullDecimal) decimal.NullDecimal {
	if !pct.Valid {
		return decimal.NullDecimal{}
	}
	factor := decimal.NewFromInt(1).Add(pct.Decimal.Div(hundred))
	if factor.IsZero() {
		return decimal.NullDecimal{}
	}
	previous := price.Div(factor)
	return decimal.NewNullDecimal(price.Sub(previous).Round(8))
}
