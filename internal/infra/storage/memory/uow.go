package memory

import (
	"context"
	"errors"

	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	domainuser "rentcar/internal/domain/user"
)

// Store groups the in-memory repositories of one process.
type Store struct {
	Cars     *CarRepository
	Users    *UserRepository
	Bookings *BookingRepository
	Ledger   *LedgerRepository
}

func NewStore() *Store {
	return &Store{
		Cars:     NewCarRepository(),
		Users:    NewUserRepository(),
		Bookings: NewBookingRepository(),
		Ledger:   NewLedgerRepository(),
	}
}

func (s *Store) Factory() Factory {
	return Factory{CarsRepo: s.Cars, UsersRepo: s.Users, BookingRepo: s.Bookings, LedgerRepo: s.Ledger}
}

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	CarsRepo    domaincars.Repository
	UsersRepo   domainuser.Repository
	BookingRepo domainbooking.Repository
	LedgerRepo  domainledger.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. Writes are applied immediately and
// Rollback does not undo them; per-car serialization and the booking version check keep
// concurrent commands consistent.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.CarsRepo == nil || f.UsersRepo == nil || f.BookingRepo == nil || f.LedgerRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		cars:     f.CarsRepo,
		users:    f.UsersRepo,
		bookings: f.BookingRepo,
		ledger:   f.LedgerRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	cars     domaincars.Repository
	users    domainuser.Repository
	bookings domainbooking.Repository
	ledger   domainledger.Repository
}

func (u *Unit) Cars() domaincars.Repository {
	return u.cars
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Ledger() domainledger.Repository {
	return u.ledger
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.UoWFactory = Factory{}
