package bookings

import (
	"context"
	"log/slog"
	"time"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/outbox"
	domainbooking "rentcar/internal/domain/booking"
	domainuser "rentcar/internal/domain/user"
)

const cancelBookingKey = "bookings.cancel"

type CancelBookingCommand struct {
	Actor     access.Actor `json:"-"`
	BookingID string       `json:"bookingId" validate:"required"`
}

func (c CancelBookingCommand) Key() string             { return cancelBookingKey }
func (c CancelBookingCommand) Principal() access.Actor { return c.Actor }
func (c CancelBookingCommand) LockKey() string         { return handlersupport.BookingLockKey(c.BookingID) }
func (c CancelBookingCommand) AllowedRoles() []domainuser.Role {
	return nil
}

type CancelBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Rules   domainbooking.Rules
	Clock   func() time.Time
	Logger  *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*BookingResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := loadForParty(ctx, unit, cmd.BookingID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Clock)
	changed, err := booking.Cancel(cmd.Actor.UserID, h.Rules, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &BookingResult{Message: "Already cancelled", Booking: dto.MapBooking(booking)}, nil
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	rows, err := unit.Ledger().MarkBookingCancelled(ctx, string(booking.ID), now)
	if err != nil {
		return nil, err
	}
	if err := outbox.Record(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", booking.ID, "actor_id", cmd.Actor.UserID, "postings", rows)
	}
	return &BookingResult{Message: "Booking cancelled", Changed: true, Booking: dto.MapBooking(booking)}, nil
}

var _ commands.Handler[CancelBookingCommand, *BookingResult] = (*CancelBookingHandler)(nil)
var _ middleware.SerializedCommand = CancelBookingCommand{}
