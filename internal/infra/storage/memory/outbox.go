package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "rentcar/internal/app/outbox"
	"rentcar/internal/app/uow"
)

// Outbox stands in for the Mongo outbox and Kafka in memory mode. Records are queued once
// the command's unit commits and handed to the dispatcher by Run.
type Outbox struct {
	dispatcher appoutbox.Dispatcher
	logger     *slog.Logger
	queue      chan appoutbox.EventRecord

	mu        sync.Mutex
	published []appoutbox.EventRecord
}

func NewOutbox(dispatcher appoutbox.Dispatcher, logger *slog.Logger, buffer int) *Outbox {
	if buffer <= 0 {
		buffer = 256
	}
	return &Outbox{dispatcher: dispatcher, logger: logger, queue: make(chan appoutbox.EventRecord, buffer)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	uow.AfterCommit(ctx, func(context.Context) {
		o.enqueue(record)
	})
	return nil
}

// Flush is a no-op: records are released by the commit hook, not by the middleware.
func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) enqueue(record appoutbox.EventRecord) {
	o.mu.Lock()
	o.published = append(o.published, record)
	o.mu.Unlock()
	select {
	case o.queue <- record:
	default:
		if o.logger != nil {
			o.logger.Warn("outbox queue full, event dropped", "event", record.Name, "event_id", record.ID)
		}
	}
}

// Run dispatches queued events until ctx is done.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-o.queue:
			if o.dispatcher == nil {
				continue
			}
			if err := o.dispatcher.HandleEvent(ctx, rec); err != nil && o.logger != nil {
				o.logger.Warn("event dispatch failed", "event", rec.Name, "event_id", rec.ID, "error", err)
			}
		}
	}
}

// Published returns every record released so far.
func (o *Outbox) Published() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.published...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
