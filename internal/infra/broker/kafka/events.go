package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	appoutbox "rentcar/internal/app/outbox"
	infraoutbox "rentcar/internal/infra/outbox"
)

// Inbox deduplicates deliveries by event ID.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// EventHandler turns CloudEvents envelopes back into outbox records for a dispatcher.
// With an Inbox, an event ID already handled is skipped.
type EventHandler struct {
	Dispatcher appoutbox.Dispatcher
	Inbox      Inbox
}

func (h EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	rec, err := DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}
	if rec.Aggregate == "" {
		rec.Aggregate = string(msg.Key)
	}
	for _, hdr := range msg.Headers {
		if hdr == nil {
			continue
		}
		rec.Headers[string(hdr.Key)] = string(hdr.Value)
	}
	if h.Inbox == nil || rec.ID == "" {
		return h.Dispatcher.HandleEvent(ctx, rec)
	}
	seen, err := h.Inbox.Seen(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("kafka: inbox: %w", err)
	}
	if seen {
		return nil
	}
	if err := h.Dispatcher.HandleEvent(ctx, rec); err != nil {
		if ferr := h.Inbox.Forget(ctx, rec.ID); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	return nil
}

func DecodeEnvelope(raw []byte) (appoutbox.EventRecord, error) {
	var env infraoutbox.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return appoutbox.EventRecord{}, fmt.Errorf("kafka: decode envelope: %w", err)
	}
	if env.SpecVersion != "1.0" || env.Type == "" {
		return appoutbox.EventRecord{}, fmt.Errorf("kafka: not a cloudevent: %q", env.Type)
	}
	return appoutbox.EventRecord{
		ID:         env.ID,
		Name:       env.EventName(),
		Payload:    env.Data,
		OccurredAt: env.Time,
		Aggregate:  env.Subject,
		Headers:    map[string]string{},
	}, nil
}
