package middleware

import (
	"context"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/outbox"
)

// OutboxFlush releases recorded events once the handler returned without error.
// It sits inside Transaction, so a Mongo-backed outbox persists records in the same commit.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
