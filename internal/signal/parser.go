// Package signal turns raw oracle text into structured trade proposals and
// renders the human-readable messages published to the chat channel.
package signal

import (
	"regexp"
	"strconv"
	"strings"

	"aisignalbot/internal/domain"
)

// Field labels are fixed: the oracle is prompted in Russian and replies with
// the same labels the prompt asks for.
var (
	directionRe  = regexp.MustCompile(`Сигнал:\s*(лонг|шорт)`)
	entryRe      = regexp.MustCompile(`Вход:\s*([\d.]+)`)
	stopLossRe   = regexp.MustCompile(`SL:\s*([\d.]+)`)
	takeProfitRe = regexp.MustCompile(`TP:\s*([\d.]+)`)
	// Rationale is free text and may span multiple lines, so it matches to
	// the end of the reply.
	rationaleRe = regexp.MustCompile(`(?s)Обоснование:\s*(.*)`)

	wrappedRe = regexp.MustCompile(`\{([^{}]*)\}`)
)

// Parse extracts a trade proposal from a block of free oracle text.
// Any field whose label is absent yields a nil field; callers must treat a
// proposal that is not Actionable as "no signal produced".
func Parse(text string) *domain.Proposal {
	// Oracle replies often decorate values with quote characters.
	text = strings.ReplaceAll(text, `"`, "")

	p := &domain.Proposal{}

	if m := directionRe.FindStringSubmatch(text); m != nil {
		if dir, ok := domain.NormalizeDirection(m[1]); ok {
			p.Direction = &dir
		}
	}
	p.Entry = matchFloat(entryRe, text)
	p.StopLoss = matchFloat(stopLossRe, text)
	p.TakeProfit = matchFloat(takeProfitRe, text)
	if m := rationaleRe.FindStringSubmatch(text); m != nil {
		p.Rationale = strings.TrimSpace(m[1])
	}

	return p
}

func matchFloat(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExtractWrapped pulls the delimiter-wrapped fragments out of an oracle
// reply and joins them into one block for parsing. A reply with no wrapped
// fragments yields an empty string, which downstream treats as "no signal".
func ExtractWrapped(text string) string {
	matches := wrappedRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	fragments := make([]string, 0, len(matches))
	for _, m := range matches {
		fragments = append(fragments, m[1])
	}
	return strings.Join(fragments, "\n")
}

// BuildRecord turns an actionable proposal into a storable position row,
// stamped with its key context. Status is forced open and pnl zero.
func BuildRecord(p *domain.Proposal, timeframe, instrument string) *domain.Position {
	return &domain.Position{
		Timeframe:  timeframe,
		Instrument: instrument,
		Signal:     *p.Direction,
		Open:       *p.Entry,
		StopLoss:   *p.StopLoss,
		TakeProfit: *p.TakeProfit,
		Status:     domain.StatusOpen,
		PnL:        0,
	}
}
