package ports

import (
	"context"

	"aisignalbot/internal/domain"
)

// BarSource provides the latest completed bar's extremes for an
// instrument/timeframe. Implementations must wrap missing, empty or
// malformed data in ErrDataUnavailable so the engine can skip the tick
// instead of closing a position on bad data.
type BarSource interface {
	LatestExtremes(ctx context.Context, instrument, timeframe string) (*domain.Bar, error)
}

// ChartExcerpter renders a delimiter-wrapped excerpt of the price series
// (header line plus the trailing data lines) for prompt construction.
type ChartExcerpter interface {
	Excerpt(ctx context.Context, instrument, timeframe string) (string, error)
}
