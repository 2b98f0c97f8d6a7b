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
	"networth-tracker/internal/symbols"
)

// TransactionStore is the persistence a transaction import needs.
type TransactionStore interface {
	FindHoldingBySymbol(ctx context.Context, userID, symbol string) (*models.Holding, error)
	CreateHolding(ctx context.Context, h *models.Holding) error
	FindTransactions(ctx context.Context, holdingID string, date time.Time, action models.TransactionAction) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
}

// TransactionImporter imports buy, sell and dividend rows.
type TransactionImporter struct {
	store TransactionStore
	log   zerolog.Logger
}

// NewTransactionImporter creates a transaction importer.
func NewTransactionImporter(store TransactionStore, log zerolog.Logger) *TransactionImporter {
	return &TransactionImporter{
		store: store,
		log:   log.With().Str("component", "transaction_importer").Logger(),
	}
}

// Import parses csvText and records each valid, non-duplicate row for userID.
// Row failures are collected in the result; an error is returned only when the
// import cannot start.
func (imp *TransactionImporter) Import(ctx context.Context, userID, csvText string) (*models.ImportResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError("user_id", userID, "user is required")
	}

	start := time.Now()
	rows := ParseCSV(csvText)
	result := &models.ImportResult{Errors: []models.ImportError{}}
	sess := newSession(userID, imp.findTradeable, imp.store.CreateHolding)
	log := logging.WithOperation(logging.WithUser(imp.log, userID), "import_transactions")

	for i, row := range rows {
		rowNumber := i + 2

		v := ValidateTransactionRow(row, rowNumber)
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
			log.Debug().Err(err).Int("row", rowNumber).Msg("Transaction row failed")
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

	logging.LogImport(log, "transactions", len(rows), result.Imported, result.Skipped, len(result.Errors), time.Since(start))
	return result, nil
}

// importRow returns false when the row duplicates an existing transaction.
func (imp *TransactionImporter) importRow(ctx context.Context, sess *session, row *models.TransactionRow) (bool, error) {
	symbol := holdingSymbol(row)

	holding, err := sess.resolve(ctx, symbol, symbol, func() *models.Holding {
		return newTradeableHolding(symbol, row)
	})
	if err != nil {
		return false, fmt.Errorf("resolve holding %s: %w", symbol, err)
	}

	existing, err := imp.store.FindTransactions(ctx, holding.ID, row.Date, row.Action)
	if err != nil {
		return false, errors.Wrap(err, "check duplicates")
	}
	for _, t := range existing {
		// price and fees are not part of the duplicate key
		if t.Quantity.Equal(row.Quantity) {
			return false, nil
		}
	}

	currency := holding.Currency
	if row.Currency != nil {
		currency = rowCurrency(row.Currency)
	}

	txn := &models.Transaction{
		HoldingID: holding.ID,
		Date:      row.Date,
		Action:    row.Action,
		Quantity:  row.Quantity,
		UnitPrice: row.UnitPrice,
		Fees:      row.Fees,
		Currency:  currency,
		Notes:     row.Notes,
	}
	if err := imp.store.CreateTransaction(ctx, txn); err != nil {
		return false, err
	}
	return true, nil
}

// holdingSymbol returns the symbol a row's holding is keyed by. Stock rows carry
// their market suffix, so CBA on ASX and CBA.AX name the same holding.
func holdingSymbol(row *models.TransactionRow) string {
	t := InferTransactionHoldingType(row.Symbol, row.Exchange)
	if t == models.HoldingCrypto {
		return strings.ToUpper(strings.TrimSpace(row.Symbol))
	}
	var exchange string
	if row.Exchange != nil {
		exchange = *row.Exchange
	}
	// stock symbols never fail to normalize
	sym, _ := symbols.Normalize(row.Symbol, exchange, t)
	return sym
}

// findTradeable looks up a holding by its suffixed symbol, then by the bare
// symbol on the exchange the suffix implies.
func (imp *TransactionImporter) findTradeable(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	h, err := imp.store.FindHoldingBySymbol(ctx, userID, symbol)
	if err != nil || h != nil {
		return h, err
	}

	exchange := symbols.ExchangeForSuffix(symbol)
	if exchange == "" {
		return nil, nil
	}
	h, err = imp.store.FindHoldingBySymbol(ctx, userID, symbols.StripMarketSuffix(symbol))
	if err != nil || h == nil {
		return nil, err
	}
	if !strings.EqualFold(h.ExchangeValue(), exchange) {
		return nil, nil
	}
	return h, nil
}

// newTradeableHolding builds a holding for a symbol seen for the first time.
func newTradeableHolding(symbol string, row *models.TransactionRow) *models.Holding {
	var exchange *string
	if row.Exchange != nil {
		ex := strings.ToUpper(*row.Exchange)
		exchange = &ex
	} else if ex := symbols.ExchangeForSuffix(symbol); ex != "" {
		exchange = &ex
	}

	sym := symbol
	return &models.Holding{
		Type:     InferTransactionHoldingType(symbol, row.Exchange),
		Symbol:   &sym,
		Exchange: exchange,
		Currency: rowCurrency(row.Currency),
		Name:     symbol,
	}
}

// InferTransactionHoldingType guesses whether an unseen symbol is a stock or a coin.
// A known stock exchange or a market suffix means stock; anything else is crypto.
func InferTransactionHoldingType(symbol string, exchange *string) models.HoldingType {
	if exchange != nil && symbols.IsKnownExchange(*exchange) {
		return models.HoldingStock
	}
	if symbols.HasMarketSuffix(symbol) {
		return models.HoldingStock
	}
	return models.HoldingCrypto
}
