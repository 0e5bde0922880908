package ports

import (
	"context"

	"aisignalbot/internal/domain"
)

// PositionStore defines the interface for the durable position table.
// One independent state machine exists per (table, timeframe, instrument)
// key; the store's contract is that at most one row per key has an open
// status at any time.
type PositionStore interface {
	// FindOpen retrieves the single open row for the key, if any.
	// Returns nil, nil when no open row exists.
	FindOpen(ctx context.Context, table, timeframe, instrument string) (*domain.OpenPosition, error)
	// Insert appends a new row with open status. Unknown tables or columns
	// are rejected with a validation error before any SQL is built.
	Insert(ctx context.Context, table string, pos *domain.Position) error
	// CloseAndAccumulate sets closed status and the realized pnl on every
	// open row matching the key, returning the number of rows affected.
	// Zero matching rows is not an error.
	CloseAndAccumulate(ctx context.Context, table, timeframe, instrument string, pnl float64) (int64, error)
	// CumulativePnL sums realized pnl for the table, optionally filtered by
	// timeframe (empty string means no filter). A table without a pnl
	// column yields 0, not an error.
	CumulativePnL(ctx context.Context, table, timeframe string) (float64, error)
}
