package ports

import "context"

// Oracle is a black-box text-in/text-out service that interprets chart
// excerpts and answers with free text containing (possibly) a trade signal.
type Oracle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}
