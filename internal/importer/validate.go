package importer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networth-tracker/internal/models"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// importableActions excludes SPLIT, which is only recorded through other channels.
var importableActions = map[string]models.TransactionAction{
	"BUY":      models.ActionBuy,
	"SELL":     models.ActionSell,
	"DIVIDEND": models.ActionDividend,
}

// TransactionValidation is the outcome of validating one transaction row.
type TransactionValidation struct {
	Valid  bool
	Errors []string
	Data   *models.TransactionRow
}

// ValidateTransactionRow checks a parsed transaction row and converts it to a typed row.
// Every rule runs so a bad row reports all of its problems. A positive rowNumber prefixes
// each message with "Row N: ".
func ValidateTransactionRow(row models.CSVRow, rowNumber int) TransactionValidation {
	v := newCollector(rowNumber)
	var data models.TransactionRow

	data.Date, _ = v.date(row, "date")

	if sym := cell(row, "symbol"); sym == "" {
		v.add("symbol is required")
	} else {
		data.Symbol = sym
	}

	switch action := cell(row, "action"); {
	case action == "":
		v.add("action is required")
	default:
		a, ok := importableActions[strings.ToUpper(action)]
		if !ok {
			v.add(fmt.Sprintf("action must be one of BUY, SELL, DIVIDEND (got %q)", action))
		}
		data.Action = a
	}

	data.Quantity, _ = v.positive(row, "quantity")
	data.UnitPrice, _ = v.positive(row, "unit_price")

	data.Fees = decimal.Zero
	if fees, ok := v.optionalNonNegative(row, "fees"); ok && fees.Valid {
		data.Fees = fees.Decimal
	}

	data.Currency = optional(row, "currency")
	data.Exchange = optional(row, "exchange")
	data.Notes = optional(row, "notes")

	if len(v.errs) > 0 {
		return TransactionValidation{Valid: false, Errors: v.errs}
	}
	return TransactionValidation{Valid: true, Data: &data}
}

// collector accumulates validation messages for a single row.
type collector struct {
	prefix string
	errs   []string
}

func newCollector(rowNumber int) *collector {
	c := &collector{}
	if rowNumber > 0 {
		c.prefix = fmt.Sprintf("Row %d: ", rowNumber)
	}
	return c
}

func (c *collector) add(msg string) {
	c.errs = append(c.errs, c.prefix+msg)
}

func (c *collector) date(row models.CSVRow, key string) (time.Time, bool) {
	raw := cell(row, key)
	if raw == "" {
		c.add(key + " is required")
		return time.Time{}, false
	}
	if !datePattern.MatchString(raw) {
		c.add(fmt.Sprintf("%s must be in YYYY-MM-DD format (got %q)", key, raw))
		return time.Time{}, false
	}
	// time.Parse rejects out-of-range days such as 2024-02-30
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		c.add(fmt.Sprintf("%s is not a valid calendar date (got %q)", key, raw))
		return time.Time{}, false
	}
	return d, true
}

func (c *collector) number(row models.CSVRow, key string) (decimal.Decimal, bool) {
	raw := cell(row, key)
	if raw == "" {
		c.add(key + " is required")
		return decimal.Zero, false
	}
	d, err := parseNumber(raw)
	if err != nil {
		c.add(fmt.Sprintf("%s must be a number (got %q)", key, raw))
		return decimal.Zero, false
	}
	return d, true
}

func (c *collector) positive(row models.CSVRow, key string) (decimal.Decimal, bool) {
	d, ok := c.number(row, key)
	if !ok {
		return d, false
	}
	if !d.IsPositive() {
		c.add(fmt.Sprintf("%s must be greater than zero", key))
		return d, false
	}
	return d, true
}

// optionalNonNegative returns a null decimal for an absent cell.
func (c *collector) optionalNonNegative(row models.CSVRow, key string) (decimal.NullDecimal, bool) {
	raw := cell(row, key)
	if raw == "" {
		return decimal.NullDecimal{}, true
	}
	d, err := parseNumber(raw)
	if err != nil {
		c.add(fmt.Sprintf("%s must be a number (got %q)", key, raw))
		return decimal.NullDecimal{}, false
	}
	if d.IsNegative() {
		c.add(fmt.Sprintf("%s cannot be negative", key))
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

// parseNumber parses a decimal after dropping thousands separators.
func parseNumber(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
}

// cell returns the trimmed value for key, or "" when absent.
func cell(row models.CSVRow, key string) string {
	if v := row.Get(key); v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

func optional(row models.CSVRow, key string) *string {
	if v := cell(row, key); v != "" {
		return &v
	}
	return nil
}
