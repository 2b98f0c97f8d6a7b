package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/logging"
	"networth-tracker/internal/models"
)

// SnapshotStore is the persistence a snapshot import needs.
type SnapshotStore interface {
	FindHoldingByName(ctx context.Context, userID, name string) (*models.Holding, error)
	CreateHolding(ctx context.Context, h *models.Holding) error
	SnapshotExists(ctx context.Context, holdingID string, date time.Time) (bool, error)
	CreateSnapshot(ctx context.Context, s *models.Snapshot) error
	UpsertContribution(ctx context.Context, c *models.Contribution) error
}

var (
	superKeywords = []string{"super", "retirement", "pension", "kiwisaver"}
	debtKeywords  = []string{"debt", "loan", "credit", "mortgage", "hecs", "help"}
)

// SnapshotImporter imports fund balance rows for super, cash and debt holdings.
type SnapshotImporter struct {
	store SnapshotStore
	log   zerolog.Logger
}

// NewSnapshotImporter creates a snapshot importer.
func NewSnapshotImporter(store SnapshotStore, log zerolog.Logger) *SnapshotImporter {
	return &SnapshotImporter{
		store: store,
		log:   log.With().Str("component", "snapshot_importer").Logger(),
	}
}

// Import parses csvText and records a snapshot per valid row, skipping dates already
// recorded for the fund. Super funds also get their contributions upserted.
func (imp *SnapshotImporter) Import(ctx context.Context, userID, csvText string) (*models.ImportResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError("user_id", userID, "user is required")
	}

	start := time.Now()
	rows := ParseCSV(csvText)
	result := &models.ImportResult{Errors: []models.ImportError{}}
	sess := newSession(userID, imp.store.FindHoldingByName, imp.store.CreateHolding)
	log := logging.WithOperation(logging.WithUser(imp.log, userID), "import_snapshots")

	for i, row := range rows {
		rowNumber := i + 2

		v := ValidateSnapshotRow(row, rowNumber)
		if !v.Valid {
			rowErr := errors.NewRowError(rowNumber, v.Errors)
			log.Debug().Err(rowErr).Int("row", rowNumber).Msg("Row failed validation")
			result.Errors = append(result.Errors, models.ImportError{
				Row:     rowErr.Row,
				Message: rowErr.Error(),
				Data:    row,
			})
			continue
		}

		imported, err := imp.importRow(ctx, sess, v.Data)
		switch {
		case err != nil:
			log.Debug().Err(err).Int("row", rowNumber).Msg("Snapshot row failed")
			result.Errors = append(result.Errors, models.ImportError{
				Row:     rowNumber,
				Message: fmt.Sprintf("Row %d: %v", rowNumber, err),
				Data:    row,
			})
		case imported:
			result.Imported++
		default:
			result.Skipped++
		}
	}

	logging.LogImport(log, "snapshots", len(rows), result.Imported, result.Skipped, len(result.Errors), time.Since(start))
	return result, nil
}

func (imp *SnapshotImporter) importRow(ctx context.Context, sess *session, row *models.SnapshotRow) (bool, error) {
	key := strings.ToLower(row.FundName)

	holding, err := sess.resolve(ctx, key, row.FundName, func() *models.Holding {
		return &models.Holding{
			Type:     InferSnapshotHoldingType(row.FundName),
			Currency: rowCurrency(row.Currency),
			Name:     row.FundName,
		}
	})
	if err != nil {
		return false, fmt.Errorf("resolve holding %q: %w", row.FundName, err)
	}

	exists, err := imp.store.SnapshotExists(ctx, holding.ID, row.Date)
	if err != nil {
		return false, errors.Wrap(err, "check duplicates")
	}
	if exists {
		return false, nil
	}

	currency := holding.Currency
	if row.Currency != nil {
		currency = rowCurrency(row.Currency)
	}

	snap := &models.Snapshot{
		HoldingID: holding.ID,
		Date:      row.Date,
		Balance:   row.Balance,
		Currency:  currency,
		Notes:     row.Notes,
	}

	// The snapshot is the duplicate marker, so it is written last: a failed
	// contribution leaves the row importable on the next upload.
	if holding.Type == models.HoldingSuper && (row.EmployerContrib.Valid || row.EmployeeContrib.Valid) {
		err := imp.store.UpsertContribution(ctx, &models.Contribution{
			HoldingID:       holding.ID,
			Date:            row.Date,
			EmployerContrib: row.EmployerContrib,
			EmployeeContrib: row.EmployeeContrib,
		})
		if err != nil {
			return false, errors.Wrap(err, "record contribution")
		}
	}

	if err := imp.store.CreateSnapshot(ctx, snap); err != nil {
		return false, err
	}
	return true, nil
}

// InferSnapshotHoldingType classifies a fund by keywords in its name.
func InferSnapshotHoldingType(fundName string) models.HoldingType {
	name := strings.ToLower(fundName)
	for _, k := range superKeywords {
		if strings.Contains(name, k) {
			return models.HoldingSuper
		}
	}
	for _, k := range debtKeywords {
		if strings.Contains(name, k) {
			return models.HoldingDebt
		}
	}
	return models.HoldingCash
}
