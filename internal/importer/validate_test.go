package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth-tracker/internal/models"
)

func csvRow(kv ...string) models.CSVRow {
	row := models.CSVRow{}
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		row[kv[i]] = &v
	}
	return row
}

func validTxnRow() models.CSVRow {
	return csvRow("date", "2024-03-01", "symbol", "CBA.AX", "action", "buy", "quantity", "10", "unit_price", "101.5")
}

func TestValidateTransactionRow_Valid(t *testing.T) {
	row := validTxnRow()
	row["fees"] = nil
	row["notes"] = strPtr("  first buy ")

	v := ValidateTransactionRow(row, 2)
	require.True(t, v.Valid, v.Errors)
	require.NotNil(t, v.Data)

	assert.Equal(t, "2024-03-01", v.Data.Date.Format(models.DateLayout))
	assert.Equal(t, models.ActionBuy, v.Data.Action)
	assert.True(t, v.Data.Fees.IsZero())
	assert.Equal(t, "first buy", *v.Data.Notes)
	assert.Nil(t, v.Data.Currency)
}

func TestValidateTransactionRow_QuantityRules(t *testing.T) {
	row := validTxnRow()
	row["quantity"] = strPtr("0")
	v := ValidateTransactionRow(row, 0)
	assert.False(t, v.Valid)
	assert.Nil(t, v.Data)
	assert.Contains(t, v.Errors, "quantity must be greater than zero")

	row["quantity"] = strPtr("1,000.5")
	v = ValidateTransactionRow(row, 0)
	require.True(t, v.Valid, v.Errors)
	assert.True(t, v.Data.Quantity.Equal(decimal.RequireFromString("1000.5")))
}

func TestValidateTransactionRow_Dates(t *testing.T) {
	for _, date := range []string{"2024-02-30", "2023-02-29", "01/03/2024", "2024-3-1"} {
		row := validTxnRow()
		row["date"] = strPtr(date)
		v := ValidateTransactionRow(row, 0)
		assert.False(t, v.Valid, date)
		assert.Len(t, v.Errors, 1, date)
	}

	row := validTxnRow()
	row["date"] = strPtr("2024-02-29")
	assert.True(t, ValidateTransactionRow(row, 0).Valid)
}

func TestValidateTransactionRow_AccumulatesErrors(t *testing.T) {
	row := csvRow("date", "2024-13-01", "action", "split", "quantity", "abc", "unit_price", "-1", "fees", "-2")

	v := ValidateTransactionRow(row, 4)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 6)
	for _, msg := range v.Errors {
		assert.Regexp(t, `^Row 4: `, msg)
	}
}

func TestValidateTransactionRow_ActionCaseInsensitive(t *testing.T) {
	for _, a := range []string{"BUY", "Sell", "dividend"} {
		row := validTxnRow()
		row["action"] = strPtr(a)
		assert.True(t, ValidateTransactionRow(row, 0).Valid, a)
	}
}

func TestValidateSnapshotRow(t *testing.T) {
	v := ValidateSnapshotRow(csvRow(
		"date", "2024-01-31", "fund_name", "AustralianSuper", "balance", "-1,250.40",
		"employer_contrib", "500", "employee_contrib", "",
	), 2)
	require.True(t, v.Valid, v.Errors)
	assert.True(t, v.Data.Balance.Equal(decimal.RequireFromString("-1250.40")))
	assert.True(t, v.Data.EmployerContrib.Valid)
	assert.False(t, v.Data.EmployeeContrib.Valid)

	v = ValidateSnapshotRow(csvRow("date", "2024-01-31", "balance", "x", "employer_contrib", "-5"), 7)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{
		"Row 7: fund_name is required",
		`Row 7: balance must be a number (got "x")`,
		"Row 7: employer_contrib cannot be negative",
	}, v.Errors)
}
