package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource identifies which provider produced a price.
type PriceSource string

const (
	SourceStockProvider  PriceSource = "stock-provider"
	SourceCryptoProvider PriceSource = "crypto-provider"
)

// CachedPrice is the last successfully fetched price for a normalized symbol.
type CachedPrice struct {
	Symbol         string              `json:"symbol"`
	Price          decimal.Decimal     `json:"price"`
	Currency       Currency            `json:"currency"`
	ChangePercent  decimal.NullDecimal `json:"changePercent"`
	ChangeAbsolute decimal.NullDecimal `json:"changeAbsolute"`
	FetchedAt      time.Time           `json:"fetchedAt"`
	Source         PriceSource         `json:"source"`
}

// PriceResult is what the price fetcher hands back to callers.
// IsStale is set when the price came from the cache after a failed live fetch.
type PriceResult struct {
	Symbol         string              `json:"symbol"`
	Price          decimal.Decimal     `json:"price"`
	Currency       Currency            `json:"currency"`
	ChangePercent  decimal.NullDecimal `json:"changePercent"`
	ChangeAbsolute decimal.NullDecimal `json:"changeAbsolute"`
	FetchedAt      time.Time           `json:"fetchedAt"`
	IsStale        bool                `json:"isStale"`
	Error          string              `json:"error,omitempty"`
	Source         PriceSource         `json:"source"`
}

// ResultFromCache builds a PriceResult from a cache row.
func ResultFromCache(cp CachedPrice, stale bool, errMsg string) PriceResult {
	return PriceResult{
		Symbol:         cp.Symbol,
		Price:          cp.Price,
		Currency:       cp.Currency,
		ChangePercent:  cp.ChangePercent,
		ChangeAbsolute: cp.ChangeAbsolute,
		FetchedAt:      cp.FetchedAt,
		IsStale:        stale,
		Error:          errMsg,
		Source:         cp.Source,
	}
}
