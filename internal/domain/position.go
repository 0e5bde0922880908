package domain

import "strings"

// Direction is the side of a signalled trade. Values are stored exactly as
// the oracle produces them (localized strings), so comparisons must go
// through NormalizeDirection.
type Direction string

const (
	Long  Direction = "лонг"
	Short Direction = "шорт"
)

// NormalizeDirection maps a raw stored signal string to a Direction.
// The second return value is false for anything that is not a known side.
func NormalizeDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Long:
		return Long, true
	case Short:
		return Short, true
	}
	return "", false
}

// Position row status values.
const (
	StatusOpen   = 1
	StatusClosed = 0
)

// Key identifies one independent position state machine: a per-strategy
// table, a polling timeframe and an instrument.
type Key struct {
	Table      string // strategy table name, e.g. "RR3"
	Timeframe  string // cadence bucket, e.g. "M15"
	Instrument string // coin name, e.g. "BTC"
}

func (k Key) String() string {
	return k.Table + "/" + k.Timeframe + "/" + k.Instrument
}

// Position is one trade-event row ready for storage. Rows are append-only:
// a close mutates status and pnl, nothing is ever deleted.
type Position struct {
	Timeframe  string
	Instrument string
	Signal     Direction
	Open       float64 // entry price at signal creation
	StopLoss   float64
	TakeProfit float64
	Status     int
	PnL        float64 // realized percentage return, 0 while open
}

// OpenPosition is the lookup shape returned for the single open row of a
// key. It deliberately carries only the fields the reconciliation engine
// needs to evaluate threshold crossings.
type OpenPosition struct {
	Signal     Direction
	Open       float64
	StopLoss   float64
	TakeProfit float64
}

// CloseReason indicates which threshold closed a position.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonStopLoss   CloseReason = "SL"
)
