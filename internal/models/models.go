// Package models provides domain models for the net-worth tracker.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HoldingType represents the kind of asset or liability a holding tracks.
type HoldingType string

const (
	HoldingStock  HoldingType = "stock"
	HoldingETF    HoldingType = "etf"
	HoldingCrypto HoldingType = "crypto"
	HoldingSuper  HoldingType = "super"
	HoldingCash   HoldingType = "cash"
	HoldingDebt   HoldingType = "debt"
)

// IsTradeable reports whether holdings of this type have a market price.
func (t HoldingType) IsTradeable() bool {
	switch t {
	case HoldingStock, HoldingETF, HoldingCrypto:
		return true
	}
	return false
}

// Valid reports whether t is a known holding type.
func (t HoldingType) Valid() bool {
	switch t {
	case HoldingStock, HoldingETF, HoldingCrypto, HoldingSuper, HoldingCash, HoldingDebt:
		return true
	}
	return false
}

// Currency is an ISO 4217 currency code.
type Currency string

const (
	AUD Currency = "AUD"
	NZD Currency = "NZD"
	USD Currency = "USD"
)

// DefaultCurrency is used when an import row carries no currency.
const DefaultCurrency = AUD

// Holding is an asset or liability owned by a user.
type Holding struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Type      HoldingType `json:"type"`
	Symbol    *string     `json:"symbol"`
	Exchange  *string     `json:"exchange"`
	Currency  Currency    `json:"currency"`
	Name      string      `json:"name"`
	IsActive  bool        `json:"isActive"`
	IsDormant bool        `json:"isDormant"`
	CreatedAt time.Time   `json:"createdAt"`
	DeletedAt *time.Time  `json:"deletedAt,omitempty"`
}

// SymbolValue returns the trimmed symbol or an empty string.
func (h Holding) SymbolValue() string {
	if h.Symbol == nil {
		return ""
	}
	return strings.TrimSpace(*h.Symbol)
}

// ExchangeValue returns the trimmed exchange or an empty string.
func (h Holding) ExchangeValue() string {
	if h.Exchange == nil {
		return ""
	}
	return strings.TrimSpace(*h.Exchange)
}

// TransactionAction represents what a transaction did to a holding.
type TransactionAction string

const (
	ActionBuy      TransactionAction = "BUY"
	ActionSell     TransactionAction = "SELL"
	ActionDividend TransactionAction = "DIVIDEND"
	ActionSplit    TransactionAction = "SPLIT"
)

// Transaction is a trade or income event recorded against a holding.
type Transaction struct {
	ID        string            `json:"id"`
	HoldingID string            `json:"holdingId"`
	Date      time.Time         `json:"date"`
	Action    TransactionAction `json:"action"`
	Quantity  decimal.Decimal   `json:"quantity"`
	UnitPrice decimal.Decimal   `json:"unitPrice"`
	Fees      decimal.Decimal   `json:"fees"`
	Currency  Currency          `json:"currency"`
	Notes     *string           `json:"notes"`
	CreatedAt time.Time         `json:"createdAt"`
	DeletedAt *time.Time        `json:"deletedAt,omitempty"`
}

// Snapshot is a point-in-time balance of a non-tradeable holding.
type Snapshot struct {
	ID        string          `json:"id"`
	HoldingID string          `json:"holdingId"`
	Date      time.Time       `json:"date"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  Currency        `json:"currency"`
	Notes     *string         `json:"notes"`
	CreatedAt time.Time       `json:"createdAt"`
	DeletedAt *time.Time      `json:"deletedAt,omitempty"`
}

// Contribution records superannuation contributions for a holding on a date.
type Contribution struct {
	ID              string              `json:"id"`
	HoldingID       string              `json:"holdingId"`
	Date            time.Time           `json:"date"`
	EmployerContrib decimal.NullDecimal `json:"employerContrib"`
	EmployeeContrib decimal.NullDecimal `json:"employeeContrib"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// DateLayout is the calendar date format used by imports and storage.
const DateLayout = "2006-01-02"
