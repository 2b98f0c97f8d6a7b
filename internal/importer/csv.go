// Package importer parses, validates and persists CSV uploads of transactions and balance snapshots.
package importer

import (
	"strings"

	"networth-tracker/internal/models"
)

const utf8BOM = "\uFEFF"

// ParseCSV parses CSV text into rows keyed by the trimmed header cells.
//
// Commas delimit fields outside quotes. Inside quotes a doubled quote is a literal
// quote and line breaks belong to the field. Rows end at \r\n, \n or a bare \r.
// Blank lines are dropped. Missing or empty cells map to nil.
func ParseCSV(text string) []models.CSVRow {
	records := parseRecords(strings.TrimPrefix(text, utf8BOM))
	if len(records) == 0 {
		return []models.CSVRow{}
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]models.CSVRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(models.CSVRow, len(headers))
		for i, h := range headers {
			var v *string
			if i < len(rec) && rec[i] != "" {
				cell := rec[i]
				v = &cell
			}
			row[h] = v
		}
		rows = append(rows, row)
	}
	return rows
}

func parseRecords(text string) [][]string {
	var (
		records  [][]string
		record   []string
		field    strings.Builder
		inQuotes bool
	)

	endField := func() {
		record = append(record, field.String())
		field.Reset()
	}
	endRecord := func() {
		endField()
		if !blank(record) {
			records = append(records, record)
		}
		record = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
				continue
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			endField()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRecord()
		case '\n':
			endRecord()
		default:
			field.WriteByte(c)
		}
	}

	if field.Len() > 0 || len(record) > 0 {
		endRecord()
	}
	return records
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
