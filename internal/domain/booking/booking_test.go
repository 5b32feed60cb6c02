package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar/internal/domain/cars"
	"rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
)

var baseNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func testCar(t *testing.T) *cars.Car {
	t.Helper()
	car, err := cars.NewCar(cars.CreateParams{
		ID:          "car-1",
		OwnerID:     "owner-1",
		Name:        "Swift",
		PlateNumber: "ka01ab1234",
		PricePerDay: 1200,
		Location:    cars.Location{City: "Bengaluru"},
		Now:         baseNow,
	})
	require.NoError(t, err)
	return car
}

func newTestBooking(t *testing.T, pickup time.Time, d time.Duration) *Booking {
	t.Helper()
	dr, err := daterange.New(pickup, pickup.Add(d))
	require.NoError(t, err)
	quote, err := pricing.NewEngine(time.UTC).Price(dr.PickupAt, dr.DropoffAt, 1200)
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:        "bk-1",
		Car:       testCar(t),
		RenterID:  "renter-1",
		Range:     dr,
		Quote:     quote,
		CreatedAt: baseNow,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingSnapshotsCarAndQuote(t *testing.T) {
	b := newTestBooking(t, baseNow.Add(24*time.Hour), 26*time.Hour)

	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, "owner-1", b.OwnerID)
	assert.Equal(t, int64(1200), b.PricePerDay)
	assert.Equal(t, int64(1300), b.TotalAmount.Amount)
	assert.Equal(t, "INR", b.TotalAmount.Currency)
	assert.Equal(t, "KA01AB1234", b.Car.PlateNumber)
	assert.Equal(t, PaymentPending, b.Payment.Status)
	assert.Equal(t, "cash", b.Payment.Method)

	evs := b.Pull()
	require.Len(t, evs, 1)
	assert.Equal(t, "booking.created", evs[0].EventName())
	assert.Empty(t, b.PendingEvents())
}

func TestCheckWindowOrdering(t *testing.T) {
	rules := DefaultRules()

	soonAndShort, _ := daterange.New(baseNow.Add(time.Hour), baseNow.Add(2*time.Hour))
	assert.ErrorIs(t, rules.CheckWindow(soonAndShort, baseNow), ErrPickupTooSoon)

	short, _ := daterange.New(baseNow.Add(5*time.Hour), baseNow.Add(8*time.Hour))
	assert.ErrorIs(t, rules.CheckWindow(short, baseNow), ErrDurationTooShort)

	exact, _ := daterange.New(baseNow.Add(3*time.Hour), baseNow.Add(7*time.Hour))
	assert.NoError(t, rules.CheckWindow(exact, baseNow))
}

func TestCancel(t *testing.T) {
	rules := DefaultRules()
	pickup := baseNow.Add(10 * time.Hour)

	t.Run("inside window", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		_, err := b.Cancel("renter-1", rules, pickup.Add(-2*time.Hour))
		require.ErrorIs(t, err, ErrCancelWindowPassed)
		assert.Equal(t, StatusConfirmed, b.Status)
	})

	t.Run("at cutoff", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		changed, err := b.Cancel("renter-1", rules, pickup.Add(-3*time.Hour))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusCancelled, b.Status)
		assert.Equal(t, "renter-1", b.CancelledBy)
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		_, err := b.Cancel("renter-1", rules, baseNow)
		require.NoError(t, err)
		b.ClearEvents()

		changed, err := b.Cancel("owner-1", rules, pickup.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "renter-1", b.CancelledBy)
		assert.Empty(t, b.PendingEvents())
	})

	t.Run("completed cannot be cancelled", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		_, err := b.Complete(CompleteParams{ActorID: "owner-1"}, rules, pickup.Add(24*time.Hour))
		require.NoError(t, err)
		_, err = b.Cancel("renter-1", rules, baseNow)
		require.ErrorIs(t, err, ErrCannotCancelCompleted)
	})
}

func TestComplete(t *testing.T) {
	rules := DefaultRules()
	pickup := baseNow.Add(10 * time.Hour)
	dropoff := pickup.Add(24 * time.Hour)

	t.Run("too early", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		_, err := b.Complete(CompleteParams{ActorID: "owner-1"}, rules, dropoff.Add(-61*time.Minute))
		require.ErrorIs(t, err, ErrCompleteTooEarly)
	})

	t.Run("negative charge", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		_, err := b.Complete(CompleteParams{ActorID: "owner-1", TollAmount: -1}, rules, dropoff)
		require.ErrorIs(t, err, ErrInvalidCharge)
	})

	t.Run("late completion allowed", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		changed, err := b.Complete(CompleteParams{
			ActorID:       "owner-1",
			CarInspected:  true,
			ChallanAmount: 500,
			ChallanProofs: []string{"https://blob/challan.jpg"},
		}, rules, dropoff.Add(30*24*time.Hour))
		require.NoError(t, err)
		assert.True(t, changed)
		require.NotNil(t, b.Completion)
		assert.Equal(t, ApprovalPending, b.Completion.Approval)
		assert.Equal(t, int64(500), b.Completion.ChallanAmount)

		changed, err = b.Complete(CompleteParams{ActorID: "admin-1"}, rules, dropoff.Add(31*24*time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "owner-1", b.Completion.CompletedBy)
	})

	t.Run("cancelled cannot be completed", func(t *testing.T) {
		b := newTestBooking(t, pickup, 24*time.Hour)
		_, err := b.Cancel("renter-1", rules, baseNow)
		require.NoError(t, err)
		_, err = b.Complete(CompleteParams{ActorID: "owner-1"}, rules, dropoff)
		require.ErrorIs(t, err, ErrCannotCompleteCancelled)
	})
}

func TestSetApproval(t *testing.T) {
	rules := DefaultRules()
	pickup := baseNow.Add(10 * time.Hour)
	b := newTestBooking(t, pickup, 24*time.Hour)

	require.ErrorIs(t, b.SetApproval(ApprovalApproved, "admin-1", baseNow), ErrApprovalRequiresCompletion)

	_, err := b.Complete(CompleteParams{ActorID: "owner-1"}, rules, pickup.Add(24*time.Hour))
	require.NoError(t, err)
	require.ErrorIs(t, b.SetApproval(Approval("maybe"), "admin-1", baseNow), ErrInvalidApproval)
	require.NoError(t, b.SetApproval(ApprovalRejected, "admin-1", baseNow))
	assert.Equal(t, ApprovalRejected, b.Completion.Approval)
	assert.Equal(t, "admin-1", b.Completion.ApprovedBy)
}

func TestMarkPaid(t *testing.T) {
	rules := DefaultRules()
	b := newTestBooking(t, baseNow.Add(10*time.Hour), 24*time.Hour)

	changed, err := b.MarkPaid("UPI", baseNow)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentPaid, b.Payment.Status)
	assert.Equal(t, "upi", b.Payment.Method)

	changed, err = b.MarkPaid("", baseNow)
	require.NoError(t, err)
	assert.False(t, changed)

	other := newTestBooking(t, baseNow.Add(10*time.Hour), 24*time.Hour)
	_, err = other.Cancel("renter-1", rules, baseNow)
	require.NoError(t, err)
	_, err = other.MarkPaid("cash", baseNow)
	require.ErrorIs(t, err, ErrPaymentOnCancelled)
}

func TestIsParty(t *testing.T) {
	b := newTestBooking(t, baseNow.Add(10*time.Hour), 24*time.Hour)
	assert.True(t, b.IsParty("renter-1"))
	assert.True(t, b.IsParty("owner-1"))
	assert.False(t, b.IsParty("someone"))
	assert.False(t, b.IsParty(""))
}
