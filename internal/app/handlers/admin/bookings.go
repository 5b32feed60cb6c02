package admin

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	ledgerhandlers "rentcar/internal/app/handlers/ledger"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/middleware"
	domainbooking "rentcar/internal/domain/booking"
	domainledger "rentcar/internal/domain/ledger"
	domainuser "rentcar/internal/domain/user"
)

const (
	setApprovalKey   = "admin.bookings.approval"
	refundBookingKey = "admin.bookings.refund"
)

var adminOnly = []domainuser.Role{domainuser.RoleAdmin}

type SetApprovalCommand struct {
	Actor     access.Actor `json:"-"`
	BookingID string       `json:"bookingId" validate:"required"`
	Approval  string       `json:"approval" validate:"required,oneof=pending approved rejected"`
}

func (c SetApprovalCommand) Key() string                     { return setApprovalKey }
func (c SetApprovalCommand) Principal() access.Actor         { return c.Actor }
func (c SetApprovalCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type BookingResult struct {
	Message string         `json:"message"`
	Booking dto.BookingDTO `json:"booking"`
}

type SetApprovalHandler struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

func (h *SetApprovalHandler) Handle(ctx context.Context, cmd SetApprovalCommand) (*BookingResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	state, err := domainbooking.ParseApproval(cmd.Approval)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if err := booking.SetApproval(state, cmd.Actor.UserID, handlersupport.Now(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("completion reviewed", "booking_id", booking.ID, "approval", state, "admin_id", cmd.Actor.UserID)
	}
	return &BookingResult{Message: "Approval updated", Booking: dto.MapBooking(booking)}, nil
}

// RefundBookingCommand returns money to the renter of a cancelled booking. A zero Amount
// refunds whatever has not been refunded yet.
type RefundBookingCommand struct {
	Actor     access.Actor `json:"-"`
	BookingID string       `json:"bookingId" validate:"required"`
	Amount    int64        `json:"amount" validate:"gte=0"`
	Note      string       `json:"note" validate:"max=500"`
}

func (c RefundBookingCommand) Key() string                     { return refundBookingKey }
func (c RefundBookingCommand) Principal() access.Actor         { return c.Actor }
func (c RefundBookingCommand) AllowedRoles() []domainuser.Role { return adminOnly }

// LockKey keeps two refunds of one booking from both passing the total check.
func (c RefundBookingCommand) LockKey() string {
	return handlersupport.BookingLockKey(c.BookingID)
}

type RefundResult struct {
	Message      string               `json:"message"`
	Refunded     dto.MoneyDTO         `json:"refunded"`
	Remaining    dto.MoneyDTO         `json:"remaining"`
	Transactions []dto.TransactionDTO `json:"transactions"`
}

type RefundBookingHandler struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

func (h *RefundBookingHandler) Handle(ctx context.Context, cmd RefundBookingCommand) (*RefundResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if booking.Status != domainbooking.StatusCancelled {
		return nil, domainbooking.ErrNotCancelled
	}
	rows, err := unit.Ledger().ByBooking(ctx, string(booking.ID))
	if err != nil {
		return nil, err
	}
	already := refundedAmount(rows)
	remaining := booking.TotalAmount.Amount - already
	amount := cmd.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return nil, domainledger.ErrRefundExceeds
	}
	now := handlersupport.Now(h.Clock)
	note := strings.TrimSpace(cmd.Note)
	if note == "" {
		note = "refund"
	}
	pair, err := ledgerhandlers.PairFor(booking, domainledger.TypeRefund, domainledger.StatusPaid, amount, note, now)
	if err != nil {
		return nil, err
	}
	if err := unit.Ledger().InsertPair(ctx, pair); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking refunded", "booking_id", booking.ID, "amount", amount, "admin_id", cmd.Actor.UserID)
	}
	currency := booking.TotalAmount.Currency
	return &RefundResult{
		Message:      "Refund recorded",
		Refunded:     dto.MoneyDTO{Amount: already + amount, Currency: currency},
		Remaining:    dto.MoneyDTO{Amount: remaining - amount, Currency: currency},
		Transactions: dto.MapTransactions(pair.Rows()),
	}, nil
}

// refundedAmount sums the renter side of earlier refund pairs.
func refundedAmount(rows []domainledger.Transaction) int64 {
	var total int64
	for _, row := range rows {
		if row.Type == domainledger.TypeRefund && row.Party == domainledger.PartyRenter && !row.Status.Void() {
			total += row.Amount.Amount
		}
	}
	return total
}

var _ commands.Handler[SetApprovalCommand, *BookingResult] = (*SetApprovalHandler)(nil)
var _ commands.Handler[RefundBookingCommand, *RefundResult] = (*RefundBookingHandler)(nil)
var _ middleware.SerializedCommand = RefundBookingCommand{}
