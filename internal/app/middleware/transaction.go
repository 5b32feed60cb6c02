package middleware

import (
	"context"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// UnitManager is implemented by commands whose handlers open one unit per item themselves.
type UnitManager interface {
	ManagesUnits() bool
}

// Transaction runs the rest of the chain inside one unit of work and commits on success.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if m, ok := cmd.(UnitManager); ok && m.ManagesUnits() {
				return next.Dispatch(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			hookCtx, hooks := uow.WithCommitHooks(ctx)
			execCtx := uow.Bind(hookCtx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			// hooks see the caller's context: no session, no bound unit
			hooks.Run(ctx)
			return res, nil
		})
	}
}
