package signal

import (
	"fmt"
	"strings"
)

// Excerpt is one chart file's contribution to the oracle prompt: a label
// describing its timeframe and the delimiter-wrapped body produced by a
// ChartExcerpter.
type Excerpt struct {
	Timeframe string
	Body      string
}

// BuildPrompt renders the full oracle prompt: a preamble describing the
// attached chart excerpts, the excerpts themselves, and the question.
func BuildPrompt(excerpts []Excerpt, question string) string {
	var sb strings.Builder

	sb.WriteString("У меня есть следующие данные, извлеченные из CSV-файлов.")
	for i, ex := range excerpts {
		sb.WriteString(fmt.Sprintf(" Файл %d - это таймфрейм %s.", i+1, ex.Timeframe))
	}
	sb.WriteString("\n\n")

	for i, ex := range excerpts {
		sb.WriteString(fmt.Sprintf("Файл %d (%s):\n%s\n\n", i+1, ex.Timeframe, ex.Body))
	}

	sb.WriteString(fmt.Sprintf("Исходя из этих данных ответь на следующий вопрос: %s", question))
	return sb.String()
}
