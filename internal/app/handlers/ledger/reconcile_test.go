package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "rentcar/internal/domain/booking"
	"rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	"rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
	"rentcar/internal/infra/storage/memory"
)

var now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func seedBookings(t *testing.T, store *memory.Store, n int) []*domainbooking.Booking {
	t.Helper()
	ctx := context.Background()
	car, err := cars.NewCar(cars.CreateParams{
		ID: "car-1", OwnerID: "owner-1", Name: "Swift", PlateNumber: "KA01AB1234",
		PricePerDay: 1200, Location: cars.Location{City: "Bengaluru"}, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, store.Cars.Save(ctx, car))

	out := make([]*domainbooking.Booking, 0, n)
	for i := 0; i < n; i++ {
		pickup := now.Add(time.Duration(72+48*i) * time.Hour)
		rng, err := daterange.New(pickup, pickup.Add(24*time.Hour))
		require.NoError(t, err)
		quote, err := pricing.NewEngine(time.UTC).Price(rng.PickupAt, rng.DropoffAt, car.PricePerDay)
		require.NoError(t, err)
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:        domainbooking.BookingID(fmt.Sprintf("bk-%d", i)),
			Car:       car,
			RenterID:  "renter-1",
			Range:     rng,
			Quote:     quote,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, store.Bookings.Save(ctx, b))
		out = append(out, b)
	}
	return out
}

func TestReconcileWalksEveryPage(t *testing.T) {
	store := memory.NewStore()
	seeded := seedBookings(t, store, 5)
	ctx := context.Background()
	require.NoError(t, EnsureBookingPair(ctx, store.Ledger, seeded[0], now))

	h := &ReconcileHandler{UoWFactory: store.Factory(), Clock: func() time.Time { return now }}
	report, err := h.Handle(ctx, ReconcileCommand{Actor: SystemActor, System: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Checked)
	assert.Equal(t, 4, report.Repaired)
	assert.Zero(t, report.Failed)

	newest := seeded[len(seeded)-1]
	rows, err := store.Ledger.ByBooking(ctx, string(newest.ID))
	require.NoError(t, err)
	pair, found := domainledger.FindPair(rows, domainledger.TypeBooking)
	require.True(t, found)
	assert.True(t, pair.Balanced())
	assert.Equal(t, newest.TotalAmount, pair.Owner.Amount)

	again, err := h.Handle(ctx, ReconcileCommand{Actor: SystemActor, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, again.Checked)
	assert.Zero(t, again.Repaired)
}

// cancellingLocker cancels the booking before granting the lock, the way a cancel command
// holding the booking lock would finish just ahead of the repair.
type cancellingLocker struct {
	t     *testing.T
	store *memory.Store
}

func (l cancellingLocker) Lock(ctx context.Context, key string) (func(), error) {
	b, err := l.store.Bookings.ByID(ctx, "bk-0")
	require.NoError(l.t, err)
	if b.Status == domainbooking.StatusConfirmed {
		_, err = b.Cancel("renter-1", domainbooking.DefaultRules(), now)
		require.NoError(l.t, err)
		require.NoError(l.t, l.store.Bookings.Save(ctx, b))
	}
	return func() {}, nil
}

func TestReconcileSkipsBookingCancelledAfterListing(t *testing.T) {
	store := memory.NewStore()
	seedBookings(t, store, 1)
	ctx := context.Background()

	h := &ReconcileHandler{
		UoWFactory: store.Factory(),
		Locker:     cancellingLocker{t: t, store: store},
		Clock:      func() time.Time { return now },
	}
	report, err := h.Handle(ctx, ReconcileCommand{Actor: SystemActor})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Zero(t, report.Repaired)

	rows, err := store.Ledger.ByBooking(ctx, "bk-0")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReconcileKeepsPaidStatusWhenFixingAmount(t *testing.T) {
	store := memory.NewStore()
	seeded := seedBookings(t, store, 1)
	ctx := context.Background()

	wrong, err := PairFor(seeded[0], domainledger.TypeBooking, domainledger.StatusPaid, 1, "", now)
	require.NoError(t, err)
	require.NoError(t, store.Ledger.UpsertPair(ctx, wrong))

	h := &ReconcileHandler{UoWFactory: store.Factory(), Locker: memory.NewKeyedLocker(), Clock: func() time.Time { return now }}
	report, err := h.Handle(ctx, ReconcileCommand{Actor: SystemActor})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired)

	rows, err := store.Ledger.ByBooking(ctx, "bk-0")
	require.NoError(t, err)
	pair, found := domainledger.FindPair(rows, domainledger.TypeBooking)
	require.True(t, found)
	assert.Equal(t, seeded[0].TotalAmount, pair.Owner.Amount)
	assert.Equal(t, domainledger.StatusPaid, pair.Owner.Status)
	assert.Equal(t, wrong.Owner.ID, pair.Owner.ID)
}
