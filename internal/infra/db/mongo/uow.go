package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	domainuser "rentcar/internal/domain/user"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	CarsRepo    domaincars.Repository
	UsersRepo   domainuser.Repository
	BookingRepo domainbooking.Repository
	LedgerRepo  domainledger.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// NewFactory builds the repositories over db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:          db,
		CarsRepo:    NewCarRepository(db),
		UsersRepo:   NewUserRepository(db),
		BookingRepo: NewBookingRepository(db),
		LedgerRepo:  NewLedgerRepository(db),
	}
}

// Begin starts a MongoDB session/transaction. Read-only units use snapshot reads.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		cars:     f.CarsRepo,
		users:    f.UsersRepo,
		bookings: f.BookingRepo,
		ledger:   f.LedgerRepo,
	}, nil
}

type Unit struct {
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
