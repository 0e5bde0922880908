// Package pnl computes realized percentage returns for closed positions.
package pnl

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"aisignalbot/internal/ports"
)

var hundred = decimal.NewFromInt(100)

// Percent returns ((reference - exit) / exit) * 100 rounded to 3 decimal
// places. An exit price of zero is a defined failure, never a panic.
func Percent(reference, exit float64) (float64, error) {
	if exit == 0 {
		return 0, fmt.Errorf("pnl percent with reference %v: %w", reference, ports.ErrDivisionByZero)
	}
	ref := decimal.NewFromFloat(reference)
	ex := decimal.NewFromFloat(exit)
	result, _ := ref.Sub(ex).Div(ex).Mul(hundred).Round(3).Float64()
	return result, nil
}

// ForTakeProfit computes the percentage return of a take-profit close.
// The sign is forced non-negative at the call site because entry/exit
// ordering differs between long and short legs.
func ForTakeProfit(reference, exit float64) (float64, error) {
	p, err := Percent(reference, exit)
	if err != nil {
		return 0, err
	}
	return math.Abs(p), nil
}

// ForStopLoss computes the percentage return of a stop-loss close, with the
// sign forced non-positive.
func ForStopLoss(reference, exit float64) (float64, error) {
	p, err := Percent(reference, exit)
	if err != nil {
		return 0, err
	}
	return -math.Abs(p), nil
}
