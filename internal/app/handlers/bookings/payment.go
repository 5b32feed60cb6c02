package bookings

import (
	"context"
	"log/slog"
	"time"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	ledgerhandlers "rentcar/internal/app/handlers/ledger"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/outbox"
	domainledger "rentcar/internal/domain/ledger"
	domainuser "rentcar/internal/domain/user"
)

const markPaidKey = "bookings.mark_paid"

// MarkPaidCommand records that the owner collected the rental amount.
type MarkPaidCommand struct {
	Actor     access.Actor `json:"-"`
	BookingID string       `json:"bookingId" validate:"required"`
	Method    string       `json:"method" validate:"omitempty,oneof=cash upi card"`
}

func (c MarkPaidCommand) Key() string             { return markPaidKey }
func (c MarkPaidCommand) Principal() access.Actor { return c.Actor }
func (c MarkPaidCommand) LockKey() string         { return handlersupport.BookingLockKey(c.BookingID) }
func (c MarkPaidCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleOwner, domainuser.RoleFleet, domainuser.RoleAdmin}
}

type MarkPaidHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   func() time.Time
	Logger  *slog.Logger
}

func (h *MarkPaidHandler) Handle(ctx context.Context, cmd MarkPaidCommand) (*BookingResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := loadForOwner(ctx, unit, cmd.BookingID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Clock)
	changed, err := booking.MarkPaid(cmd.Method, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &BookingResult{Message: "Already paid", Booking: dto.MapBooking(booking)}, nil
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	rows, err := unit.Ledger().UpdatePairStatus(ctx, string(booking.ID), domainledger.TypeBooking, domainledger.StatusPaid, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// the pair was never written at creation; write it now as paid
		if err := ledgerhandlers.EnsureBookingPair(ctx, unit.Ledger(), booking, now); err != nil {
			return nil, err
		}
	}
	if err := outbox.Record(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking paid", "booking_id", booking.ID, "method", booking.Payment.Method, "postings", rows)
	}
	return &BookingResult{Message: "Payment recorded", Changed: true, Booking: dto.MapBooking(booking)}, nil
}

var _ commands.Handler[MarkPaidCommand, *BookingResult] = (*MarkPaidHandler)(nil)
var _ middleware.SerializedCommand = MarkPaidCommand{}
