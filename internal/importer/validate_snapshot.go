package importer

import "networth-tracker/internal/models"

// SnapshotValidation is the outcome of validating one snapshot row.
type SnapshotValidation struct {
	Valid  bool
	Errors []string
	Data   *models.SnapshotRow
}

// ValidateSnapshotRow checks a parsed snapshot row. Balances may be negative for debts;
// contributions are optional but never negative.
func ValidateSnapshotRow(row models.CSVRow, rowNumber int) SnapshotValidation {
	v := newCollector(rowNumber)
	var data models.SnapshotRow

	data.Date, _ = v.date(row, "date")

	if name := cell(row, "fund_name"); name == "" {
		v.add("fund_name is required")
	} else {
		data.FundName = name
	}

	if balance, ok := v.number(row, "balance"); ok {
		data.Balance = balance
	}

	data.EmployerContrib, _ = v.optionalNonNegative(row, "employer_contrib")
	data.EmployeeContrib, _ = v.optionalNonNegative(row, "employee_contrib")

	data.Currency = optional(row, "currency")
	data.Notes = optional(row, "notes")

	if len(v.errs) > 0 {
		return SnapshotValidation{Valid: false, Errors: v.errs}
	}
	return SnapshotValidation{Valid: true, Data: &data}
}

