// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"networth-tracker/internal/models"
)

// HoldingStore persists holdings. Lookups ignore soft-deleted rows and return nil, nil on miss.
type HoldingStore interface {
	GetHolding(ctx context.Context, id string) (*models.Holding, error)
	FindHoldingBySymbol(ctx context.Context, userID, symbol string) (*models.Holding, error)
	FindHoldingByName(ctx context.Context, userID, name string) (*models.Holding, error)
	CreateHolding(ctx context.Context, h *models.Holding) error
	ListHoldings(ctx context.Context, filter HoldingFilter) ([]models.Holding, error)
	ListTradeableHoldings(ctx context.Context, userID string) ([]models.Holding, error)
}

// TransactionStore persists transactions.
type TransactionStore interface {
	FindTransactions(ctx context.Context, holdingID string, date time.Time, action models.TransactionAction) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
}

// SnapshotStore persists balance snapshots.
type SnapshotStore interface {
	SnapshotExists(ctx context.Context, holdingID string, date time.Time) (bool, error)
	CreateSnapshot(ctx context.Context, s *models.Snapshot) error
}

// ContributionStore persists superannuation contributions.
type ContributionStore interface {
	UpsertContribution(ctx context.Context, c *models.Contribution) error
	GetContribution(ctx context.Context, holdingID string, date time.Time) (*models.Contribution, error)
}

// PriceCacheStore persists the last fetched price per symbol.
type PriceCacheStore interface {
	GetCachedPrice(ctx context.Context, symbol string) (*models.CachedPrice, error)
	SetCachedPrice(ctx context.Context, price models.CachedPrice) error
}

// DataStore defines the interface for data persistence.
type DataStore interface {
	HoldingStore
	TransactionStore
	SnapshotStore
	ContributionStore
	PriceCacheStore

	// Lifecycle
	Close() error
}

// HoldingFilter represents filters for querying holdings.
type HoldingFilter struct {
	UserID         string
	Types          []models.HoldingType
	ActiveOnly     bool
	IncludeDeleted bool
	Limit          int
}
