package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CSVRow maps a trimmed header to the cell value, nil when the cell is empty or missing.
type CSVRow map[string]*string

// Get returns the cell for key, or nil.
func (r CSVRow) Get(key string) *string {
	if r == nil {
		return nil
	}
	return r[key]
}

// TransactionRow is a validated transaction import row.
type TransactionRow struct {
	Date      time.Time
	Symbol    string
	Action    TransactionAction
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Fees      decimal.Decimal
	Currency  *string
	Exchange  *string
	Notes     *string
}

// SnapshotRow is a validated snapshot import row.
type SnapshotRow struct {
	Date            time.Time
	FundName        string
	Balance         decimal.Decimal
	EmployerContrib decimal.NullDecimal
	EmployeeContrib decimal.NullDecimal
	Currency        *string
	Notes           *string
}

// ImportError describes a row that could not be imported.
// Row is the 1-based line number in the file, the header being row 1.
type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Data    CSVRow `json:"data,omitempty"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// Total returns the number of rows accounted for.
func (r ImportResult) Total() int {
	return r.Imported + r.Skipped + len(r.Errors)
}
