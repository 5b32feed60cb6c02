package bookings

import (
	"context"
	"strings"

	"rentcar/internal/app/access"
	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
)

// loadForParty returns the booking when the actor is its renter, its owner, or an admin.
func loadForParty(ctx context.Context, unit uow.UnitOfWork, id string, actor access.Actor) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || b.IsParty(actor.UserID) {
		return b, nil
	}
	return nil, access.ErrNotBookingParty
}

// loadForOwner is loadForParty without the renter.
func loadForOwner(ctx context.Context, unit uow.UnitOfWork, id string, actor access.Actor) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || b.OwnerID == actor.UserID {
		return b, nil
	}
	return nil, access.ErrNotBookingParty
}
