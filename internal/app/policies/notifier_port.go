package policies

import "context"

// Notifier delivers a message to a user. Callers treat delivery as best effort.
type Notifier interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
