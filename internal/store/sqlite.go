// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/models"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == MemoryDSN {
		// every connection to :memory: gets its own database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	store := &SQLiteStore{db: db, now: time.Now}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS holdings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		symbol TEXT,
		exchange TEXT,
		currency TEXT NOT NULL,
		name TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_dormant INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		deleted_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		holding_id TEXT NOT NULL,
		date TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		fees TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL,
		notes TEXT,
		created_at INTEGER NOT NULL,
		deleted_at INTEGER,
		FOREIGN KEY (holding_id) REFERENCES holdings(id)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		holding_id TEXT NOT NULL,
		date TEXT NOT NULL,
		balance TEXT NOT NULL,
		currency TEXT NOT NULL,
		notes TEXT,
		created_at INTEGER NOT NULL,
		deleted_at INTEGER,
		FOREIGN KEY (holding_id) REFERENCES holdings(id)
	);

	CREATE TABLE IF NOT EXISTS contributions (
		id TEXT PRIMARY KEY,
		holding_id TEXT NOT NULL,
		date TEXT NOT NULL,
		employer_contrib TEXT,
		employee_contrib TEXT,
		updated_at INTEGER NOT NULL,
		UNIQUE(holding_id, date),
		FOREIGN KEY (holding_id) REFERENCES holdings(id)
	);

	CREATE TABLE IF NOT EXISTS price_cache (
		symbol TEXT PRIMARY KEY,
		price TEXT NOT NULL,
		currency TEXT NOT NULL,
		change_percent TEXT,
		change_absolute TEXT,
		fetched_at INTEGER NOT NULL,
		source TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings(user_id, deleted_at);
	CREATE INDEX IF NOT EXISTS idx_holdings_symbol ON holdings(user_id, symbol COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_transactions_dup ON transactions(holding_id, date, action);
	CREATE INDEX IF NOT EXISTS idx_snapshots_dup ON snapshots(holding_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const holdingColumns = `id, user_id, type, symbol, exchange, currency, name, is_active, is_dormant, created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*models.Holding, error) {
	var h models.Holding
	var symbol, exchange sql.NullString
	var isActive, isDormant int
	var createdAt int64
	var deletedAt sql.NullInt64

	if err := row.Scan(&h.ID, &h.UserID, &h.Type, &symbol, &exchange, &h.Currency, &h.Name, &isActive, &isDormant, &createdAt, &deletedAt); err != nil {
		return nil, err
	}

	h.Symbol = nullStringPtr(symbol)
	h.Exchange = nullStringPtr(exchange)
	h.IsActive = isActive == 1
	h.IsDormant = isDormant == 1
	h.CreatedAt = time.UnixMilli(createdAt)
	h.DeletedAt = nullMillisPtr(deletedAt)
	return &h, nil
}

// GetHolding returns a holding by id, or nil if it does not exist.
func (s *SQLiteStore) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+holdingColumns+` FROM holdings WHERE id = ?`, id)
	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get holding %s: %v", errors.ErrDatabaseError, id, err)
	}
	return h, nil
}

// FindHoldingBySymbol returns the user's live holding with the given symbol, ignoring case.
func (s *SQLiteStore) FindHoldingBySymbol(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	return s.findHolding(ctx, `symbol = ? COLLATE NOCASE`, userID, strings.TrimSpace(symbol))
}

// FindHoldingByName returns the user's live holding with the given name, ignoring case.
func (s *SQLiteStore) FindHoldingByName(ctx context.Context, userID, name string) (*models.Holding, error) {
	return s.findHolding(ctx, `LOWER(name) = LOWER(?)`, userID, strings.TrimSpace(name))
}

func (s *SQLiteStore) findHolding(ctx context.Context, cond, userID, value string) (*models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings
		WHERE user_id = ? AND ` + cond + ` AND deleted_at IS NULL
		ORDER BY created_at LIMIT 1`

	h, err := scanHolding(s.db.QueryRowContext(ctx, query, userID, value))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find holding: %w", err)
	}
	return h, nil
}

// CreateHolding inserts a holding, assigning an id and creation time when unset.
func (s *SQLiteStore) CreateHolding(ctx context.Context, h *models.Holding) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdings (`+holdingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.UserID, string(h.Type), h.Symbol, h.Exchange, string(h.Currency), h.Name,
		boolToInt(h.IsActive), boolToInt(h.IsDormant), h.CreatedAt.UnixMilli(), millisOrNil(h.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}
	return nil
}

// ListHoldings retrieves holdings matching the filter.
func (s *SQLiteStore) ListHoldings(ctx context.Context, filter HoldingFilter) ([]models.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE 1=1`
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += " AND type IN (" + strings.Join(placeholders, ",") + ")"
	}
	if filter.ActiveOnly {
		query += " AND is_active = 1"
	}
	if !filter.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}

	query += " ORDER BY user_id, name"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, *h)
	}

	return holdings, rows.Err()
}

// ListTradeableHoldings returns live, active stock, etf and crypto holdings. An empty userID lists every user.
func (s *SQLiteStore) ListTradeableHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	return s.ListHoldings(ctx, HoldingFilter{
		UserID:     userID,
		Types:      []models.HoldingType{models.HoldingStock, models.HoldingETF, models.HoldingCrypto},
		ActiveOnly: true,
	})
}

// FindTransactions returns live transactions for a holding on a date with the given action.
func (s *SQLiteStore) FindTransactions(ctx context.Context, holdingID string, date time.Time, action models.TransactionAction) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, holding_id, date, action, quantity, unit_price, fees, currency, notes, created_at
		FROM transactions
		WHERE holding_id = ? AND date = ? AND action = ? AND deleted_at IS NULL
	`, holdingID, date.Format(models.DateLayout), string(action))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var date string
		var notes sql.NullString
		var createdAt int64

		if err := rows.Scan(&t.ID, &t.HoldingID, &date, &t.Action, &t.Quantity, &t.UnitPrice, &t.Fees, &t.Currency, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid transaction date %q: %w", date, err)
		}
		t.Notes = nullStringPtr(notes)
		t.CreatedAt = time.UnixMilli(createdAt)
		txns = append(txns, t)
	}

	return txns, rows.Err()
}

// CreateTransaction inserts a transaction.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, holding_id, date, action, quantity, unit_price, fees, currency, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.HoldingID, t.Date.Format(models.DateLayout), string(t.Action),
		t.Quantity.String(), t.UnitPrice.String(), t.Fees.String(), string(t.Currency), t.Notes, t.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// SnapshotExists reports whether a live snapshot exists for the holding on date.
func (s *SQLiteStore) SnapshotExists(ctx context.Context, holdingID string, date time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM snapshots WHERE holding_id = ? AND date = ? AND deleted_at IS NULL
	`, holdingID, date.Format(models.DateLayout)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot: %w", err)
	}
	return count > 0, nil
}

// CreateSnapshot inserts a snapshot.
func (s *SQLiteStore) CreateSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, holding_id, date, balance, currency, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.HoldingID, snap.Date.Format(models.DateLayout), snap.Balance.String(),
		string(snap.Currency), snap.Notes, snap.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// UpsertContribution inserts or updates the contribution for (holding, date).
func (s *SQLiteStore) UpsertContribution(ctx context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UpdatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contributions (id, holding_id, date, employer_contrib, employee_contrib, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(holding_id, date) DO UPDATE SET
			employer_contrib = excluded.employer_contrib,
			employee_contrib = excluded.employee_contrib,
			updated_at = excluded.updated_at
	`, c.ID, c.HoldingID, c.Date.Format(models.DateLayout),
		nullDecimalValue(c.EmployerContrib), nullDecimalValue(c.EmployeeContrib), c.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert contribution: %w", err)
	}
	return nil
}

// GetContribution returns the contribution for (holding, date), or nil.
func (s *SQLiteStore) GetContribution(ctx context.Context, holdingID string, date time.Time) (*models.Contribution, error) {
	var c models.Contribution
	var d string
	var updatedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, holding_id, date, employer_contrib, employee_contrib, updated_at
		FROM contributions WHERE holding_id = ? AND date = ?
	`, holdingID, date.Format(models.DateLayout)).Scan(&c.ID, &c.HoldingID, &d, &c.EmployerContrib, &c.EmployeeContrib, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}

	c.Date, _ = time.Parse(models.DateLayout, d)
	c.UpdatedAt = time.UnixMilli(updatedAt)
	return &c, nil
}

// GetCachedPrice returns the cached price for a normalized symbol, or nil on a miss.
func (s *SQLiteStore) GetCachedPrice(ctx context.Context, symbol string) (*models.CachedPrice, error) {
	var cp models.CachedPrice
	var fetchedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, price, currency, change_percent, change_absolute, fetched_at, source
		FROM price_cache WHERE symbol = ?
	`, symbol).Scan(&cp.Symbol, &cp.Price, &cp.Currency, &cp.ChangePercent, &cp.ChangeAbsolute, &fetchedAt, &cp.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached price: %w", err)
	}

	cp.FetchedAt = time.UnixMilli(fetchedAt)
	return &cp, nil
}

// SetCachedPrice upserts the cache row for the price's symbol.
func (s *SQLiteStore) SetCachedPrice(ctx context.Context, cp models.CachedPrice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO price_cache (symbol, price, currency, change_percent, change_absolute, fetched_at, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cp.Symbol, cp.Price.String(), string(cp.Currency),
		nullDecimalValue(cp.ChangePercent), nullDecimalValue(cp.ChangeAbsolute), cp.FetchedAt.UnixMilli(), string(cp.Source))
	if err != nil {
		return fmt.Errorf("failed to set cached price: %w", err)
	}
	return nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullMillisPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64)
	return &t
}

func millisOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullDecimalValue(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
