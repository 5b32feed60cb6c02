package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainbooking "rentcar/internal/domain/booking"
	domainledger "rentcar/internal/domain/ledger"
	"rentcar/internal/domain/shared/money"
)

// BookingPairStatus is the status a booking pair should carry given the payment state.
func BookingPairStatus(b *domainbooking.Booking) domainledger.Status {
	if b.Payment.Status == domainbooking.PaymentPaid {
		return domainledger.StatusPaid
	}
	return domainledger.StatusPending
}

// PairFor builds the owner/renter pair of a booking event.
func PairFor(b *domainbooking.Booking, typ domainledger.Type, status domainledger.Status, amount int64, note string, now time.Time) (domainledger.Pair, error) {
	value, err := money.Magnitude(amount, b.TotalAmount.Currency)
	if err != nil {
		return domainledger.Pair{}, err
	}
	return domainledger.NewPair(domainledger.PairParams{
		BookingID:   string(b.ID),
		OwnerID:     b.OwnerID,
		RenterID:    b.RenterID,
		Car:         b.Car,
		Type:        typ,
		Status:      status,
		Amount:      value,
		Note:        note,
		Now:         now,
		IDGenerator: uuid.NewString,
	})
}

// EnsureBookingPair upserts the booking pair keyed by (booking, party, "booking").
func EnsureBookingPair(ctx context.Context, repo domainledger.Repository, b *domainbooking.Booking, now time.Time) error {
	pair, err := PairFor(b, domainledger.TypeBooking, BookingPairStatus(b), b.TotalAmount.Amount, "", now)
	if err != nil {
		return err
	}
	return repo.UpsertPair(ctx, pair)
}

// PostFees inserts one pending fee pair per positive extra charge.
func PostFees(ctx context.Context, repo domainledger.Repository, b *domainbooking.Booking, now time.Time) (int, error) {
	if b.Completion == nil {
		return 0, nil
	}
	charges := []struct {
		amount int64
		note   string
	}{
		{b.Completion.ChallanAmount, "challan"},
		{b.Completion.TollAmount, "toll"},
	}
	posted := 0
	for _, c := range charges {
		if c.amount <= 0 {
			continue
		}
		pair, err := PairFor(b, domainledger.TypeFee, domainledger.StatusPending, c.amount, c.note, now)
		if err != nil {
			return posted, err
		}
		if err := repo.InsertPair(ctx, pair); err != nil {
			return posted, err
		}
		posted++
	}
	return posted, nil
}
