package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/outbox"
	"rentcar/internal/app/policies"
	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domainuser "rentcar/internal/domain/user"
)

var ErrUndecodableEvent = errors.New("notifications: event payload cannot be decoded")

type message struct {
	subject string
	renter  string
	owner   string
}

// BookingEventHandler tells both parties about booking lifecycle events. Delivery is best
// effort: a failed send is logged and never retried.
type BookingEventHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Logger     *slog.Logger
}

// HandleEvent ignores events it has no template for.
func (h *BookingEventHandler) HandleEvent(ctx context.Context, rec outbox.EventRecord) error {
	if h.Notifier == nil {
		return nil
	}
	var ref struct {
		BookingID string `json:"bookingId"`
	}
	if err := json.Unmarshal(rec.Payload, &ref); err != nil || ref.BookingID == "" {
		return fmt.Errorf("%w: %s", ErrUndecodableEvent, rec.Name)
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(ref.BookingID))
	if err != nil {
		return err
	}
	msg, ok := compose(rec.Name, booking)
	if !ok {
		return nil
	}
	h.send(execCtx, unit, booking.RenterID, msg.subject, msg.renter, rec)
	h.send(execCtx, unit, booking.OwnerID, msg.subject, msg.owner, rec)
	return nil
}

func (h *BookingEventHandler) send(ctx context.Context, unit uow.UnitOfWork, userID, subject, body string, rec outbox.EventRecord) {
	u, err := unit.Users().ByID(ctx, domainuser.ID(userID))
	if err != nil {
		h.warn("notification recipient not found", rec, userID, err)
		return
	}
	if err := h.Notifier.Send(ctx, u.Email, subject, body); err != nil {
		h.warn("notification not delivered", rec, userID, err)
	}
}

func (h *BookingEventHandler) warn(msg string, rec outbox.EventRecord, userID string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, "event", rec.Name, "event_id", rec.ID, "user_id", userID, "error", err)
	}
}

func compose(event string, b *domainbooking.Booking) (message, bool) {
	car := b.Car.Name
	if b.Car.PlateNumber != "" {
		car += " (" + b.Car.PlateNumber + ")"
	}
	window := b.Range.PickupAt.Format("02 Jan 15:04") + " to " + b.Range.DropoffAt.Format("02 Jan 15:04 MST")
	switch event {
	case "booking.created":
		return message{
			subject: "Booking confirmed: " + car,
			renter:  fmt.Sprintf("Your booking of %s for %s is confirmed. Total %d %s.", car, window, b.TotalAmount.Amount, b.TotalAmount.Currency),
			owner:   fmt.Sprintf("%s was booked for %s. Total %d %s.", car, window, b.TotalAmount.Amount, b.TotalAmount.Currency),
		}, true
	case "booking.cancelled":
		return message{
			subject: "Booking cancelled: " + car,
			renter:  fmt.Sprintf("Your booking of %s for %s was cancelled.", car, window),
			owner:   fmt.Sprintf("The booking of %s for %s was cancelled.", car, window),
		}, true
	case "booking.completed":
		return message{
			subject: "Trip completed: " + car,
			renter:  fmt.Sprintf("Your trip with %s is complete. Thank you for renting.", car),
			owner:   fmt.Sprintf("The trip with %s was marked complete.", car),
		}, true
	case "booking.paid":
		return message{
			subject: "Payment received: " + car,
			renter:  fmt.Sprintf("Payment of %d %s for %s was recorded.", b.TotalAmount.Amount, b.TotalAmount.Currency, car),
			owner:   fmt.Sprintf("You recorded a payment of %d %s for %s.", b.TotalAmount.Amount, b.TotalAmount.Currency, car),
		}, true
	}
	return message{}, false
}
