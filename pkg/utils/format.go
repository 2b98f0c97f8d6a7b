// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount in currency's display format, e.g. "$1,234.50".
// Amounts are rounded to the currency's minor unit. Unknown currency codes fall
// back to "<amount> <CODE>".
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), code)
	}

	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), code).Display()
}

// FormatPrice renders a unit price. Sub-unit prices such as small crypto coins
// keep more precision than the currency's minor unit.
func FormatPrice(price decimal.Decimal, currency string) string {
	if price.Abs().LessThan(decimal.NewFromInt(1)) && !price.IsZero() {
		return fmt.Sprintf("%s %s", price.StringFixed(6), strings.ToUpper(currency))
	}
	return FormatMoney(price, currency)
}

// FormatPercent formats a percentage with sign, or "n/a" when unknown.
func FormatPercent(value decimal.NullDecimal) string {
	if !value.Valid {
		return "n/a"
	}
	sign := ""
	if value.Decimal.IsPositive() {
		sign = "+"
	}
	return sign + value.Decimal.StringFixed(2) + "%"
}

// FormatChange formats an absolute price change with sign.
func FormatChange(value decimal.NullDecimal, currency string) string {
	if !value.Valid {
		return "n/a"
	}
	if value.Decimal.IsPositive() {
		return "+" + FormatMoney(value.Decimal, currency)
	}
	return FormatMoney(value.Decimal, currency)
}
