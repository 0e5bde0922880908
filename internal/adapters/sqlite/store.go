package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"aisignalbot/internal/domain"
	"aisignalbot/internal/ports"
)

// Store implements the ports.PositionStore interface using SQLite.
// It assumes a single writer: the lazy pnl migration is not guarded by a
// transaction spanning the subsequent update, so concurrent writers to the
// same table from outside this process are out of contract.
type Store struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite store.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewStore opens the database, applies connection settings and creates
// every registered strategy table idempotently.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite store")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signals.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits
	// from limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: cfg.Logger}

	if err := s.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath, "tables": TableNames()})

	return s, nil
}

// initializeSchema creates every registered table if it doesn't exist.
func (s *Store) initializeSchema(ctx context.Context) error {
	for table, schema := range registry {
		if _, err := s.db.ExecContext(ctx, schema.createStatement(table)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database connection. Any operation after Close reports
// ErrNotConnected.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info(context.Background(), "Closing SQLite database connection")
	db := s.db
	s.db = nil
	return db.Close()
}

func (s *Store) conn() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ports.ErrNotConnected
	}
	return s.db, nil
}

// FindOpen retrieves the single open row for the key, if any.
// Returns nil, nil both when the table is empty and when rows exist but
// none is open; the distinction is surfaced only in debug logs.
func (s *Store) FindOpen(ctx context.Context, table, timeframe, instrument string) (*domain.OpenPosition, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if _, err := lookupTable(table); err != nil {
		return nil, err
	}

	var rowCount int
	if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&rowCount); err != nil {
		return nil, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	if rowCount == 0 {
		s.logger.Debug(ctx, "Table has no rows yet", map[string]interface{}{"table": table})
		return nil, nil
	}

	query := fmt.Sprintf(`
	SELECT SL, TP, signal, open
	FROM %s
	WHERE status = ? AND timeframe = ? AND coin_name = ?
	LIMIT 1`, table)

	var pos domain.OpenPosition
	var rawSignal string
	err = db.QueryRowContext(ctx, query, domain.StatusOpen, timeframe, instrument).
		Scan(&pos.StopLoss, &pos.TakeProfit, &rawSignal, &pos.Open)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug(ctx, "No open position found", map[string]interface{}{"table": table, "timeframe": timeframe, "instrument": instrument})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query open position in %s: %w", table, err)
	}
	pos.Signal = domain.Direction(rawSignal)
	return &pos, nil
}

// Insert appends a new position row with open status.
func (s *Store) Insert(ctx context.Context, table string, pos *domain.Position) error {
	values := map[string]interface{}{
		"timeframe": pos.Timeframe,
		"coin_name": pos.Instrument,
		"signal":    string(pos.Signal),
		"open":      pos.Open,
		"SL":        pos.StopLoss,
		"TP":        pos.TakeProfit,
		"status":    pos.Status,
	}
	return s.insertRow(ctx, table, values)
}

// insertRow validates every field name against the registry before any SQL
// text is built, then appends one row.
func (s *Store) insertRow(ctx context.Context, table string, values map[string]interface{}) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	schema, err := lookupTable(table)
	if err != nil {
		return err
	}

	// Iterate the declared column order so the built SQL is deterministic.
	columns := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values))
	for _, c := range schema.columns {
		if v, ok := values[c.name]; ok {
			columns = append(columns, c.name)
			args = append(args, v)
		}
	}
	for name := range values {
		if !schema.hasColumn(name) {
			return fmt.Errorf("column %q in table %q: %w", name, table, ports.ErrUnknownColumn)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders(len(columns)))
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert position into %s: %w", table, err)
	}
	s.logger.Debug(ctx, "Position inserted", map[string]interface{}{"table": table, "timeframe": values["timeframe"], "instrument": values["coin_name"]})
	return nil
}

// CloseAndAccumulate sets closed status and the realized pnl on every open
// row matching the key. Safe to call when zero rows match.
func (s *Store) CloseAndAccumulate(ctx context.Context, table, timeframe, instrument string, pnl float64) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if _, err := lookupTable(table); err != nil {
		return 0, err
	}

	if err := s.ensurePnLColumn(ctx, table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
	UPDATE %s
	SET status = ?, pnl = ?
	WHERE status = ? AND timeframe = ? AND coin_name = ?`, table)

	result, err := db.ExecContext(ctx, query, domain.StatusClosed, pnl, domain.StatusOpen, timeframe, instrument)
	if err != nil {
		return 0, fmt.Errorf("failed to close position in %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for close in %s: %w", table, err)
	}
	s.logger.Debug(ctx, "Position close applied", map[string]interface{}{"table": table, "timeframe": timeframe, "instrument": instrument, "pnl": pnl, "rowsAffected": affected})
	return affected, nil
}

// CumulativePnL sums the realized pnl column, optionally filtered by
// timeframe. A table that has never seen a close (no pnl column yet) yields
// 0, never an error.
func (s *Store) CumulativePnL(ctx context.Context, table, timeframe string) (float64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if _, err := lookupTable(table); err != nil {
		return 0, err
	}

	hasPnL, err := s.hasPnLColumn(ctx, table)
	if err != nil {
		return 0, err
	}
	if !hasPnL {
		return 0, nil
	}

	query := fmt.Sprintf("SELECT COALESCE(SUM(pnl), 0) FROM %s", table)
	args := make([]interface{}, 0, 1)
	if timeframe != "" {
		query += " WHERE timeframe = ?"
		args = append(args, timeframe)
	}

	var total float64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum pnl in %s: %w", table, err)
	}
	return total, nil
}

// ensurePnLColumn lazily adds the pnl column before the first close on a
// table. Idempotent under the single-writer assumption.
func (s *Store) ensurePnLColumn(ctx context.Context, table string) error {
	hasPnL, err := s.hasPnLColumn(ctx, table)
	if err != nil {
		return err
	}
	if hasPnL {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s REAL", table, pnlColumn)); err != nil {
		return fmt.Errorf("failed to add pnl column to %s: %w", table, err)
	}
	s.logger.Info(ctx, "Added pnl column", map[string]interface{}{"table": table})
	return nil
}

func (s *Store) hasPnLColumn(ctx context.Context, table string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("failed to scan table info for %s: %w", table, err)
		}
		if name == pnlColumn {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("error iterating table info for %s: %w", table, err)
	}
	return false, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
