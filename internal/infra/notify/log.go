package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"rentcar/internal/app/policies"
)

var ErrNoRecipient = errors.New("notify: recipient address is empty")

// LogNotifier writes outgoing messages to the log instead of a mail provider.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification sent", "to", to, "subject", subject, "body_len", len(body))
	return nil
}

var _ policies.Notifier = LogNotifier{}
