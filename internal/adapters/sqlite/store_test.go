package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisignalbot/internal/domain"
	"aisignalbot/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestStore creates a temporary database for testing
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "signal-bot-test-*")
	require.NoError(t, err)

	store, err := NewStore(Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
		os.RemoveAll(tmpDir)
	})

	return store
}

func testPosition(dir domain.Direction) *domain.Position {
	return &domain.Position{
		Timeframe:  "M15",
		Instrument: "BTC",
		Signal:     dir,
		Open:       100,
		StopLoss:   95,
		TakeProfit: 110,
		Status:     domain.StatusOpen,
	}
}

func TestStore_InsertAndFindOpenRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "RR3", testPosition(domain.Long)))

	got, err := store.FindOpen(ctx, "RR3", "M15", "BTC")
	require.NoError(t, err)
	require.NotNil(t, got)

	// The lookup shape carries exactly SL, TP, signal and open.
	assert.Equal(t, domain.OpenPosition{
		Signal:     domain.Long,
		Open:       100,
		StopLoss:   95,
		TakeProfit: 110,
	}, *got)
}

func TestStore_FindOpenEmptyTable(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.FindOpen(context.Background(), "RR3", "M15", "BTC")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_FindOpenNoOpenRows(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "RR3", testPosition(domain.Long)))
	_, err := store.CloseAndAccumulate(ctx, "RR3", "M15", "BTC", 5.0)
	require.NoError(t, err)

	// Rows exist, none open: same nil result as an empty table.
	got, err := store.FindOpen(ctx, "RR3", "M15", "BTC")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_KeysAreIndependent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "RR3", testPosition(domain.Long)))

	// Same table, different timeframe: no open row for that key.
	got, err := store.FindOpen(ctx, "RR3", "H1", "BTC")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Same timeframe, different instrument.
	got, err = store.FindOpen(ctx, "RR3", "M15", "ETH")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Different table entirely.
	got, err = store.FindOpen(ctx, "RR5", "M15", "BTC")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_InsertValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("unknown table rejected", func(t *testing.T) {
		err := store.Insert(ctx, "RR9", testPosition(domain.Long))
		assert.ErrorIs(t, err, ports.ErrUnknownTable)
	})

	t.Run("unknown column rejected", func(t *testing.T) {
		err := store.insertRow(ctx, "RR3", map[string]interface{}{
			"timeframe": "M15",
			"leverage":  10,
		})
		assert.ErrorIs(t, err, ports.ErrUnknownColumn)
	})
}

func TestStore_CloseAndAccumulate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("zero open rows returns zero, table unchanged", func(t *testing.T) {
		affected, err := store.CloseAndAccumulate(ctx, "RR3", "M15", "BTC", 1.5)
		require.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("closes the matching open row and records pnl", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, "RR3", testPosition(domain.Short)))

		affected, err := store.CloseAndAccumulate(ctx, "RR3", "M15", "BTC", -2.5)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)

		got, err := store.FindOpen(ctx, "RR3", "M15", "BTC")
		require.NoError(t, err)
		assert.Nil(t, got)

		total, err := store.CumulativePnL(ctx, "RR3", "M15")
		require.NoError(t, err)
		assert.Equal(t, -2.5, total)
	})

	t.Run("second close is a no-op", func(t *testing.T) {
		affected, err := store.CloseAndAccumulate(ctx, "RR3", "M15", "BTC", 9.0)
		require.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("unknown table rejected", func(t *testing.T) {
		_, err := store.CloseAndAccumulate(ctx, "nope", "M15", "BTC", 1.0)
		assert.ErrorIs(t, err, ports.ErrUnknownTable)
	})
}

func TestStore_CumulativePnL(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("missing pnl column yields zero, not an error", func(t *testing.T) {
		total, err := store.CumulativePnL(ctx, "RR3", "M15")
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("sums across closed trades", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, "RR3", testPosition(domain.Long)))
		_, err := store.CloseAndAccumulate(ctx, "RR3", "M15", "BTC", 10.0)
		require.NoError(t, err)

		require.NoError(t, store.Insert(ctx, "RR3", testPosition(domain.Short)))
		_, err = store.CloseAndAccumulate(ctx, "RR3", "M15", "BTC", -4.0)
		require.NoError(t, err)

		total, err := store.CumulativePnL(ctx, "RR3", "M15")
		require.NoError(t, err)
		assert.Equal(t, 6.0, total)
	})

	t.Run("timeframe filter", func(t *testing.T) {
		pos := testPosition(domain.Long)
		pos.Timeframe = "H1"
		require.NoError(t, store.Insert(ctx, "RR3", pos))
		_, err := store.CloseAndAccumulate(ctx, "RR3", "H1", "BTC", 3.0)
		require.NoError(t, err)

		total, err := store.CumulativePnL(ctx, "RR3", "H1")
		require.NoError(t, err)
		assert.Equal(t, 3.0, total)

		// Empty timeframe means no filter.
		total, err = store.CumulativePnL(ctx, "RR3", "")
		require.NoError(t, err)
		assert.Equal(t, 9.0, total)
	})
}

func TestStore_AtMostOneOpenRowPerKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Simulate several open/close cycles and verify the invariant the
	// engine relies on: lookup-then-insert only when no open row exists.
	for i := 0; i < 3; i++ {
		open, err := store.FindOpen(ctx, "RR3", "M15", "BTC")
		require.NoError(t, err)
		require.Nil(t, open)

		require.NoError(t, store.Insert(ctx, "RR3", testPosition(domain.Long)))

		open, err = store.FindOpen(ctx, "RR3", "M15", "BTC")
		require.NoError(t, err)
		require.NotNil(t, open)

		affected, err := store.CloseAndAccumulate(ctx, "RR3", "M15", "BTC", 1.0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
	}

	// History is append-only: three closed rows accumulated.
	total, err := store.CumulativePnL(ctx, "RR3", "M15")
	require.NoError(t, err)
	assert.Equal(t, 3.0, total)
}

func TestStore_UsedAfterClose(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.FindOpen(context.Background(), "RR3", "M15", "BTC")
	assert.ErrorIs(t, err, ports.ErrNotConnected)

	err = store.Insert(context.Background(), "RR3", testPosition(domain.Long))
	assert.ErrorIs(t, err, ports.ErrNotConnected)

	_, err = store.CloseAndAccumulate(context.Background(), "RR3", "M15", "BTC", 1.0)
	assert.ErrorIs(t, err, ports.ErrNotConnected)

	_, err = store.CumulativePnL(context.Background(), "RR3", "")
	assert.ErrorIs(t, err, ports.ErrNotConnected)
}
