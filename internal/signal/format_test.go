package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aisignalbot/internal/domain"
)

func TestNewSignalMessage(t *testing.T) {
	key := domain.Key{Table: "RR3", Timeframe: "M15", Instrument: "BTC"}
	pos := &domain.Position{
		Timeframe:  "M15",
		Instrument: "BTC",
		Signal:     domain.Long,
		Open:       100,
		StopLoss:   95,
		TakeProfit: 110,
		Status:     domain.StatusOpen,
	}

	msg := NewSignalMessage(pos, key, "восходящий тренд")
	assert.Contains(t, msg, "#M15")
	assert.Contains(t, msg, "#RR3")
	assert.Contains(t, msg, "Монета: BTC")
	assert.Contains(t, msg, "Сигнал: лонг")
	assert.Contains(t, msg, "Вход: 100")
	assert.Contains(t, msg, "SL: 95")
	assert.Contains(t, msg, "TP: 110")
	assert.Contains(t, msg, "Обоснование: восходящий тренд")
}

func TestNewSignalMessageWithoutRationale(t *testing.T) {
	key := domain.Key{Table: "RR5", Timeframe: "H1", Instrument: "ETH"}
	pos := &domain.Position{Signal: domain.Short, Open: 2000, StopLoss: 2100, TakeProfit: 1500}

	msg := NewSignalMessage(pos, key, "")
	assert.NotContains(t, msg, "Обоснование")
}

func TestCloseMessage(t *testing.T) {
	key := domain.Key{Table: "RR3", Timeframe: "M15", Instrument: "BTC"}

	msg := CloseMessage(key, domain.Long, domain.CloseReasonTakeProfit, 11.111, 25.5)
	assert.Contains(t, msg, "по TP")
	assert.Contains(t, msg, "#M15")
	assert.Contains(t, msg, "#RR3")
	assert.Contains(t, msg, "PnL: 11.111%")
	assert.Contains(t, msg, "Общий PnL: 25.500%")

	msg = CloseMessage(key, domain.Short, domain.CloseReasonStopLoss, -3.25, -1.004)
	assert.Contains(t, msg, "по SL")
	assert.Contains(t, msg, "PnL: -3.250%")
	assert.Contains(t, msg, "Общий PnL: -1.004%")
}

func TestBuildPrompt(t *testing.T) {
	excerpts := []Excerpt{
		{Timeframe: "M15", Body: "{time,open,high,low,close}\n{1,2,3,4,5}"},
		{Timeframe: "H1", Body: "{time,open,high,low,close}\n{6,7,8,9,10}"},
	}

	prompt := BuildPrompt(excerpts, "Есть ли сигнал?")
	assert.Contains(t, prompt, "Файл 1 - это таймфрейм M15.")
	assert.Contains(t, prompt, "Файл 2 - это таймфрейм H1.")
	assert.Contains(t, prompt, "Файл 1 (M15):\n{time,open,high,low,close}\n{1,2,3,4,5}")
	assert.Contains(t, prompt, "Файл 2 (H1):")
	assert.Contains(t, prompt, "ответь на следующий вопрос: Есть ли сигнал?")
}
