package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	bookingapp "rentcar/internal/app/handlers/bookings"
	carapp "rentcar/internal/app/handlers/cars"
	ledgerapp "rentcar/internal/app/handlers/ledger"
	"rentcar/internal/app/queries"
	domainbooking "rentcar/internal/domain/booking"
	domainuser "rentcar/internal/domain/user"
	"rentcar/internal/infra/config"
)

type fixture struct {
	buses  buses
	owner  access.Actor
	renter access.Actor
	carID  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		StorageMode:     config.StorageMemory,
		IdempotencyTTL:  time.Hour,
		BookingRules:    domainbooking.DefaultRules(),
		PricingLocation: time.UTC,
		Currency:        "INR",
	}
	b := openMemoryBackend(cfg, logger)
	ctx := context.Background()

	owner := seedUser(t, b.users, "owner-1", "owner@example.com", domainuser.RoleOwner)
	renter := seedUser(t, b.users, "renter-1", "renter@example.com", domainuser.RoleRenter)

	bs := buildBuses(cfg, b, nil, nil, logger)
	car, err := commands.Dispatch[carapp.CreateCarCommand, *carapp.CarResult](ctx, bs.commands, carapp.CreateCarCommand{
		Actor:       owner,
		Name:        "Swift",
		PlateNumber: "KA01AB1234",
		PricePerDay: 2400,
		Location:    carapp.LocationPayload{City: "Bengaluru"},
	})
	require.NoError(t, err)
	require.NotNil(t, car)

	return fixture{buses: bs, owner: owner, renter: renter, carID: car.Car.ID}
}

func seedUser(t *testing.T, repo domainuser.Repository, id, email string, role domainuser.Role) access.Actor {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(id),
		Email:        email,
		Name:         id,
		PasswordHash: "hash",
		Role:         role,
	})
	require.NoError(t, err)
	require.NoError(t, u.Verify("", time.Now()))
	require.NoError(t, repo.Save(context.Background(), u))
	return access.Actor{UserID: id, Role: role}
}

func (f fixture) book(ctx context.Context, pickup time.Time, key string) (*bookingapp.BookingResult, error) {
	return commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.BookingResult](ctx, f.buses.commands, bookingapp.CreateBookingCommand{
		Actor:           f.renter,
		CarID:           f.carID,
		PickupAt:        pickup,
		DropoffAt:       pickup.Add(24 * time.Hour),
		PaymentMethod:   "cash",
		IdempotencyKeyV: key,
	})
}

func nextDay() time.Time {
	return time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)
}

func TestConcurrentBookingsOnOneCarAdmitOnlyOne(t *testing.T) {
	f := newFixture(t)
	pickup := nextDay()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		overlaps  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(context.Background(), pickup, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, domainbooking.ErrOverlapping):
				overlaps++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, overlaps)
}

func TestIdempotentCreateReplaysFirstBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.book(ctx, nextDay(), "retry-1")
	require.NoError(t, err)
	second, err := f.book(ctx, nextDay(), "retry-1")
	require.NoError(t, err)

	assert.Equal(t, first.Booking.ID, second.Booking.ID)

	list, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](ctx, f.buses.queries, bookingapp.ListBookingsQuery{
		Actor: f.renter,
		Scope: "me",
	})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestBookingWritesLedgerPairAndCancels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.book(ctx, nextDay().Add(72*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, "Booking confirmed", created.Message)

	rows, err := queries.Ask[ledgerapp.ListTransactionsQuery, dto.TransactionCollection](ctx, f.buses.queries, ledgerapp.ListTransactionsQuery{
		Actor:     f.owner,
		BookingID: created.Booking.ID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rows.Items)
	for _, row := range rows.Items {
		assert.Equal(t, created.Booking.ID, row.BookingID)
		assert.Equal(t, "booking", row.Type)
	}

	cancelled, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.BookingResult](ctx, f.buses.commands, bookingapp.CancelBookingCommand{
		Actor:     f.renter,
		BookingID: created.Booking.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Booking cancelled", cancelled.Message)
	assert.True(t, cancelled.Changed)

	again, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.BookingResult](ctx, f.buses.commands, bookingapp.CancelBookingCommand{
		Actor:     f.renter,
		BookingID: created.Booking.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Already cancelled", again.Message)
	assert.False(t, again.Changed)
}

func TestRenterCannotCreateCar(t *testing.T) {
	f := newFixture(t)
	_, err := commands.Dispatch[carapp.CreateCarCommand, *carapp.CarResult](context.Background(), f.buses.commands, carapp.CreateCarCommand{
		Actor:       f.renter,
		Name:        "Alto",
		PlateNumber: "KA02CD5678",
		PricePerDay: 1200,
		Location:    carapp.LocationPayload{City: "Mysuru"},
	})
	assert.ErrorIs(t, err, access.ErrRoleNotAllowed)
}
