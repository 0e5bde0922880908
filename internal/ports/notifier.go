package ports

import "context"

// Notifier delivers a human-readable message to a chat channel.
// Delivery is best-effort: callers log failures and never roll back store
// mutations that already succeeded.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
