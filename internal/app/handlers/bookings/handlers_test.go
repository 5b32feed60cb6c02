package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar/internal/app/access"
	"rentcar/internal/app/errcode"
	ledgerhandlers "rentcar/internal/app/handlers/ledger"
	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	"rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	"rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
	domainuser "rentcar/internal/domain/user"
	"rentcar/internal/infra/storage/memory"
)

var (
	now   = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	clock = func() time.Time { return now }
	owner = access.Actor{UserID: "owner-1", Role: domainuser.RoleOwner}
)

func seedCar(t *testing.T, store *memory.Store, available bool) *cars.Car {
	t.Helper()
	car, err := cars.NewCar(cars.CreateParams{
		ID: "car-1", OwnerID: "owner-1", Name: "Swift", PlateNumber: "KA01AB1234",
		PricePerDay: 2400, Location: cars.Location{City: "Bengaluru"}, Now: now,
	})
	require.NoError(t, err)
	car.Available = available
	require.NoError(t, store.Cars.Save(context.Background(), car))
	return car
}

func seedBooking(t *testing.T, store *memory.Store, car *cars.Car, pickup time.Time, d time.Duration) *domainbooking.Booking {
	t.Helper()
	rng, err := daterange.New(pickup, pickup.Add(d))
	require.NoError(t, err)
	quote, err := pricing.NewEngine(time.UTC).Price(rng.PickupAt, rng.DropoffAt, car.PricePerDay)
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: "bk-1", Car: car, RenterID: "renter-1", Range: rng, Quote: quote, CreatedAt: now.Add(-72 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, store.Bookings.Save(context.Background(), b))
	return b
}

func inUnit(t *testing.T, store *memory.Store) context.Context {
	t.Helper()
	unit, err := store.Factory().Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return uow.Bind(context.Background(), unit)
}

func TestQuoteReportsFirstFailingRule(t *testing.T) {
	cases := []struct {
		name      string
		available bool
		booked    bool
		pickup    time.Duration
		length    time.Duration
		code      errcode.Code
	}{
		{name: "unavailable car wins over window", available: false, pickup: time.Hour, length: 2 * time.Hour, code: errcode.CarNotAvailable},
		{name: "lead time before duration", available: true, pickup: time.Hour, length: 2 * time.Hour, code: errcode.PickupTooSoon},
		{name: "duration", available: true, pickup: 6 * time.Hour, length: 2 * time.Hour, code: errcode.DurationTooShort},
		{name: "window before overlap", available: true, booked: true, pickup: time.Hour, length: 24 * time.Hour, code: errcode.PickupTooSoon},
		{name: "overlap", available: true, booked: true, pickup: 30 * time.Hour, length: 24 * time.Hour, code: errcode.OverlappingBooking},
		{name: "available", available: true, pickup: 30 * time.Hour, length: 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			car := seedCar(t, store, tc.available)
			if tc.booked {
				seedBooking(t, store, car, now.Add(24*time.Hour), 24*time.Hour)
			}
			h := &QuoteBookingHandler{UoWFactory: store.Factory(), Rules: domainbooking.DefaultRules(), Clock: clock}

			res, err := h.Handle(context.Background(), QuoteBookingQuery{
				CarID:     "car-1",
				PickupAt:  now.Add(tc.pickup),
				DropoffAt: now.Add(tc.pickup + tc.length),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.code == "", res.Available)
			assert.Equal(t, string(tc.code), res.Code)
			require.NotNil(t, res.Car)
			require.NotNil(t, res.Pricing)
		})
	}
}

func TestQuoteReturnsHardErrors(t *testing.T) {
	store := memory.NewStore()
	seedCar(t, store, true)
	h := &QuoteBookingHandler{UoWFactory: store.Factory(), Rules: domainbooking.DefaultRules(), Clock: clock}

	_, err := h.Handle(context.Background(), QuoteBookingQuery{CarID: "car-9", PickupAt: now.Add(30 * time.Hour), DropoffAt: now.Add(54 * time.Hour)})
	assert.ErrorIs(t, err, cars.ErrNotFound)

	_, err = h.Handle(context.Background(), QuoteBookingQuery{CarID: "car-1", PickupAt: now.Add(54 * time.Hour), DropoffAt: now.Add(30 * time.Hour)})
	assert.Error(t, err)
}

func TestCompletePostsOneFeePairPerCharge(t *testing.T) {
	store := memory.NewStore()
	car := seedCar(t, store, true)
	seedBooking(t, store, car, now.Add(-26*time.Hour), 24*time.Hour)
	h := &CompleteBookingHandler{Rules: domainbooking.DefaultRules(), Clock: clock}

	res, err := h.Handle(inUnit(t, store), CompleteBookingCommand{
		Actor:         owner,
		BookingID:     "bk-1",
		CarInspected:  true,
		ChallanAmount: 500,
		TollAmount:    120,
	})
	require.NoError(t, err)
	assert.Equal(t, "Booking completed", res.Message)
	assert.True(t, res.Changed)

	rows, err := store.Ledger.ByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	var owed int64
	var fees int
	for _, row := range rows {
		require.Equal(t, domainledger.TypeFee, row.Type)
		assert.Equal(t, domainledger.StatusPending, row.Status)
		fees++
		if row.Party == domainledger.PartyOwner {
			owed += row.Amount.Amount
		}
	}
	assert.Equal(t, 4, fees)
	assert.Equal(t, int64(620), owed)

	again, err := h.Handle(inUnit(t, store), CompleteBookingCommand{Actor: owner, BookingID: "bk-1", ChallanAmount: 500})
	require.NoError(t, err)
	assert.Equal(t, "Already completed", again.Message)
	rows, err = store.Ledger.ByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestCompleteWithoutChargesPostsNothing(t *testing.T) {
	store := memory.NewStore()
	car := seedCar(t, store, true)
	seedBooking(t, store, car, now.Add(-26*time.Hour), 24*time.Hour)
	h := &CompleteBookingHandler{Rules: domainbooking.DefaultRules(), Clock: clock}

	_, err := h.Handle(inUnit(t, store), CompleteBookingCommand{Actor: owner, BookingID: "bk-1"})
	require.NoError(t, err)
	rows, err := store.Ledger.ByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkPaidFlipsBookingPair(t *testing.T) {
	store := memory.NewStore()
	car := seedCar(t, store, true)
	b := seedBooking(t, store, car, now.Add(48*time.Hour), 24*time.Hour)
	require.NoError(t, ledgerhandlers.EnsureBookingPair(context.Background(), store.Ledger, b, now))
	h := &MarkPaidHandler{Clock: clock}

	res, err := h.Handle(inUnit(t, store), MarkPaidCommand{Actor: owner, BookingID: "bk-1", Method: "upi"})
	require.NoError(t, err)
	assert.Equal(t, "Payment recorded", res.Message)

	rows, err := store.Ledger.ByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	pair, found := domainledger.FindPair(rows, domainledger.TypeBooking)
	require.True(t, found)
	assert.Equal(t, domainledger.StatusPaid, pair.Owner.Status)
	assert.Equal(t, domainledger.StatusPaid, pair.Renter.Status)

	again, err := h.Handle(inUnit(t, store), MarkPaidCommand{Actor: owner, BookingID: "bk-1"})
	require.NoError(t, err)
	assert.Equal(t, "Already paid", again.Message)
	assert.False(t, again.Changed)
}

func TestMarkPaidWritesMissingPair(t *testing.T) {
	store := memory.NewStore()
	car := seedCar(t, store, true)
	seedBooking(t, store, car, now.Add(48*time.Hour), 24*time.Hour)
	h := &MarkPaidHandler{Clock: clock}

	_, err := h.Handle(inUnit(t, store), MarkPaidCommand{Actor: owner, BookingID: "bk-1"})
	require.NoError(t, err)

	rows, err := store.Ledger.ByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	pair, found := domainledger.FindPair(rows, domainledger.TypeBooking)
	require.True(t, found)
	assert.True(t, pair.Balanced())
	assert.Equal(t, domainledger.StatusPaid, pair.Owner.Status)
}

func TestMarkPaidRejectsStranger(t *testing.T) {
	store := memory.NewStore()
	car := seedCar(t, store, true)
	seedBooking(t, store, car, now.Add(48*time.Hour), 24*time.Hour)
	h := &MarkPaidHandler{Clock: clock}

	_, err := h.Handle(inUnit(t, store), MarkPaidCommand{Actor: access.Actor{UserID: "owner-2", Role: domainuser.RoleOwner}, BookingID: "bk-1"})
	assert.ErrorIs(t, err, access.ErrNotBookingParty)
}
