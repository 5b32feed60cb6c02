package uow

import (
	"context"

	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	domainuser "rentcar/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Cars() domaincars.Repository
	Users() domainuser.Repository
	Bookings() domainbooking.Repository
	Ledger() domainledger.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
