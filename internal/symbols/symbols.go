// Package symbols maps user-entered tickers onto the identifiers market data providers expect.
package symbols

import (
	"strings"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/models"
)

// Exchange codes recognised for stock and ETF holdings.
const (
	ASX    = "ASX"
	NZX    = "NZX"
	NYSE   = "NYSE"
	NASDAQ = "NASDAQ"
)

// Market suffixes used by the stock provider.
const (
	SuffixASX = ".AX"
	SuffixNZX = ".NZ"
)

var exchangeSuffix = map[string]string{
	ASX:    SuffixASX,
	NZX:    SuffixNZX,
	NYSE:   "",
	NASDAQ: "",
}

// cryptoIDs maps crypto tickers to crypto provider coin ids.
var cryptoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"BNB":   "binancecoin",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"ATOM":  "cosmos",
	"XLM":   "stellar",
	"TRX":   "tron",
	"SHIB":  "shiba-inu",
	"UNI":   "uniswap",
	"ALGO":  "algorand",
}

// Normalize returns the canonical provider identifier for a holding's symbol.
// Crypto symbols resolve to a coin id and fail with ErrUnknownSymbol when unmapped;
// stock and ETF symbols are uppercased and given the provider's market suffix.
func Normalize(symbol, exchange string, t models.HoldingType) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	if t == models.HoldingCrypto {
		id, ok := CryptoID(sym)
		if !ok {
			return "", errors.NewProviderError(errors.KindUnknownSymbol, "", symbol, 0, nil)
		}
		return id, nil
	}

	if HasMarketSuffix(sym) {
		return sym, nil
	}

	ex := strings.ToUpper(strings.TrimSpace(exchange))
	if suffix, ok := exchangeSuffix[ex]; ok {
		return sym + suffix, nil
	}
	return sym, nil
}

// CryptoID returns the coin id for a crypto ticker.
func CryptoID(symbol string) (string, bool) {
	id, ok := cryptoIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	return id, ok
}

// HasMarketSuffix reports whether sym already carries a recognised market suffix.
func HasMarketSuffix(sym string) bool {
	sym = strings.ToUpper(sym)
	return strings.HasSuffix(sym, SuffixASX) || strings.HasSuffix(sym, SuffixNZX)
}

// StripMarketSuffix removes a recognised market suffix from sym.
func StripMarketSuffix(sym string) string {
	upper := strings.ToUpper(sym)
	for _, suffix := range []string{SuffixASX, SuffixNZX} {
		if strings.HasSuffix(upper, suffix) {
			return sym[:len(sym)-len(suffix)]
		}
	}
	return sym
}

// IsKnownExchange reports whether exchange is one of the supported stock exchanges.
func IsKnownExchange(exchange string) bool {
	_, ok := exchangeSuffix[strings.ToUpper(strings.TrimSpace(exchange))]
	return ok
}

// ExchangeForSuffix returns the exchange implied by a suffixed symbol, if any.
func ExchangeForSuffix(sym string) string {
	sym = strings.ToUpper(sym)
	switch {
	case strings.HasSuffix(sym, SuffixASX):
		return ASX
	case strings.HasSuffix(sym, SuffixNZX):
		return NZX
	}
	return ""
}

// CurrencyFor infers the trading currency of a normalized stock symbol.
func CurrencyFor(normalized string) models.Currency {
	switch ExchangeForSuffix(normalized) {
	case ASX:
		return models.AUD
	case NZX:
		return models.NZD
	}
	return models.USD
}
