package middleware

import (
	"context"

	"rentcar/internal/app/commands"
)

// SerializedCommand is implemented by commands that must not run concurrently with other
// commands sharing the same lock key.
type SerializedCommand interface {
	commands.Command
	LockKey() string
}

// KeyedLocker grants exclusive sections per key. The returned unlock must always be called.
type KeyedLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Serialize holds the command's key lock around the remaining chain. Placed outside
// Transaction, the lock covers the commit, so a second command for the same car reads the
// first one's writes.
func Serialize(locker KeyedLocker) CommandMiddleware {
	if locker == nil {
		panic("middleware: keyed locker required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			sc, ok := cmd.(SerializedCommand)
			if !ok {
				return next.Dispatch(ctx, cmd)
			}
			key := sc.LockKey()
			if key == "" {
				return next.Dispatch(ctx, cmd)
			}
			unlock, err := locker.Lock(ctx, key)
			if err != nil {
				return nil, err
			}
			defer unlock()
			return next.Dispatch(ctx, cmd)
		})
	}
}
