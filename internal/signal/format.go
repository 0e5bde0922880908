package signal

import (
	"fmt"
	"strconv"
	"strings"

	"aisignalbot/internal/domain"
)

// NewSignalMessage renders the chat message for a freshly opened position.
func NewSignalMessage(pos *domain.Position, key domain.Key, rationale string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Новый сигнал %s %s\n", tag(key.Timeframe), tag(key.Table)))
	sb.WriteString(fmt.Sprintf("Монета: %s\n", key.Instrument))
	sb.WriteString(fmt.Sprintf("Сигнал: %s\n", pos.Signal))
	sb.WriteString(fmt.Sprintf("Вход: %s\n", formatPrice(pos.Open)))
	sb.WriteString(fmt.Sprintf("SL: %s\n", formatPrice(pos.StopLoss)))
	sb.WriteString(fmt.Sprintf("TP: %s", formatPrice(pos.TakeProfit)))
	if rationale != "" {
		sb.WriteString(fmt.Sprintf("\nОбоснование: %s", rationale))
	}
	return sb.String()
}

// CloseMessage renders the chat message for a position closed by a
// threshold crossing. PnL values are shown with 3 decimal places.
func CloseMessage(key domain.Key, signal domain.Direction, reason domain.CloseReason, pnl, cumulative float64) string {
	return fmt.Sprintf("Сделка закрыта по %s %s %s\nМонета: %s\nСигнал: %s\nPnL: %.3f%%\nОбщий PnL: %.3f%%",
		reason, tag(key.Timeframe), tag(key.Table), key.Instrument, signal, pnl, cumulative)
}

// tag derives a hashtag-style marker from a key component.
func tag(s string) string {
	return "#" + s
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
