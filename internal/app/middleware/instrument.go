package middleware

import (
	"context"
	"log/slog"
	"time"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/queries"
)

// Observer receives the outcome of every dispatched message.
type Observer interface {
	Observe(kind, key string, elapsed time.Duration, err error)
}

func Instrument(obs Observer, logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			report(obs, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func QueryInstrument(obs Observer, logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			report(obs, logger, "query", q.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func report(obs Observer, logger *slog.Logger, kind, key string, elapsed time.Duration, err error) {
	if obs != nil {
		obs.Observe(kind, key, elapsed, err)
	}
	if logger != nil {
		if err != nil {
			logger.Debug(kind+" failed", "key", key, "duration_ms", elapsed.Milliseconds(), "error", err)
			return
		}
		logger.Debug(kind+" handled", "key", key, "duration_ms", elapsed.Milliseconds())
	}
}
