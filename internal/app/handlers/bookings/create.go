package bookings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	ledgerhandlers "rentcar/internal/app/handlers/ledger"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/outbox"
	"rentcar/internal/app/policies"
	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domainpricing "rentcar/internal/domain/pricing"
	domainuser "rentcar/internal/domain/user"
)

const createBookingKey = "bookings.create"

type CreateBookingCommand struct {
	Actor           access.Actor `json:"-"`
	CarID           string       `json:"carId" validate:"required"`
	PickupAt        time.Time    `json:"pickupAt" validate:"required"`
	DropoffAt       time.Time    `json:"dropoffAt" validate:"required"`
	PaymentMethod   string       `json:"paymentMethod" validate:"omitempty,oneof=cash upi card"`
	IdempotencyKeyV string       `json:"-"`
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

// IdempotencyKey is scoped to the renter so two clients cannot collide on the same key.
func (c CreateBookingCommand) IdempotencyKey() string {
	key := strings.TrimSpace(c.IdempotencyKeyV)
	if key == "" {
		return ""
	}
	return createBookingKey + ":" + c.Actor.UserID + ":" + key
}

func (c CreateBookingCommand) ResultPrototype() any { return &BookingResult{} }

// LockKey serializes creations per car.
func (c CreateBookingCommand) LockKey() string { return "car:" + strings.TrimSpace(c.CarID) }

func (c CreateBookingCommand) Principal() access.Actor { return c.Actor }
func (c CreateBookingCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleRenter}
}

// BookingResult is returned by every booking command.
type BookingResult struct {
	Message string         `json:"message"`
	Changed bool           `json:"changed"`
	Booking dto.BookingDTO `json:"booking"`
}

type CreateBookingHandler struct {
	// UoWFactory opens the separate unit used for the booking pair after commit.
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Pricing    *domainpricing.Engine
	Rules      domainbooking.Rules
	Clock      func() time.Time
	IDs        func() string
	Metrics    policies.LedgerMetrics
	Logger     *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*BookingResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	renter, err := unit.Users().ByID(ctx, domainuser.ID(cmd.Actor.UserID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, access.ErrUnauthenticated
		}
		return nil, err
	}
	switch {
	case renter.Role != domainuser.RoleRenter:
		return nil, access.ErrRoleNotAllowed
	case !renter.Verified:
		return nil, access.ErrUserNotVerified
	case renter.Blocked:
		return nil, access.ErrUserBlocked
	}

	now := handlersupport.Now(h.Clock)
	eval, err := checker{Pricing: h.Pricing, Rules: h.Rules}.evaluate(ctx, unit, cmd.CarID, cmd.PickupAt, cmd.DropoffAt, now)
	if err != nil {
		return nil, err
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:            domainbooking.BookingID(h.newID()),
		Car:           eval.Car,
		RenterID:      string(renter.ID),
		Range:         eval.Range,
		Quote:         *eval.Quote,
		PaymentMethod: cmd.PaymentMethod,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.Record(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}

	// The pair is written after the booking commits and never fails the booking; the
	// reconcile job repairs pairs that did not make it.
	snapshot := *booking
	uow.AfterCommit(ctx, func(ctx context.Context) {
		h.ensurePair(ctx, &snapshot, now)
	})

	if h.Logger != nil {
		h.Logger.Info("booking created",
			"booking_id", booking.ID,
			"car_id", booking.CarID,
			"renter_id", booking.RenterID,
			"total", booking.TotalAmount.Amount,
			"mode", booking.PricingMode,
		)
	}
	return &BookingResult{Message: "Booking confirmed", Changed: true, Booking: dto.MapBooking(booking)}, nil
}

func (h *CreateBookingHandler) ensurePair(ctx context.Context, b *domainbooking.Booking, now time.Time) {
	err := h.writePair(ctx, b, now)
	if err == nil {
		return
	}
	if h.Metrics != nil {
		h.Metrics.LedgerWriteFailed("booking")
	}
	if h.Logger != nil {
		h.Logger.Error("booking ledger pair not written", "booking_id", b.ID, "error", err)
	}
}

func (h *CreateBookingHandler) writePair(ctx context.Context, b *domainbooking.Booking, now time.Time) error {
	if h.UoWFactory == nil {
		return uow.ErrUnitOfWorkMissing
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	execCtx := uow.Bind(ctx, unit)
	if err := ledgerhandlers.EnsureBookingPair(execCtx, unit.Ledger(), b, now); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	return unit.Commit(execCtx)
}

func (h *CreateBookingHandler) newID() string {
	if h.IDs != nil {
		return h.IDs()
	}
	return uuid.NewString()
}

var _ commands.Handler[CreateBookingCommand, *BookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
var _ middleware.SerializedCommand = CreateBookingCommand{}
