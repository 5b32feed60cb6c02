package bookings

import (
	"context"
	"log/slog"
	"strings"

	"rentcar/internal/app/access"
	"rentcar/internal/app/dto"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/queries"
	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	domainuser "rentcar/internal/domain/user"
)

const (
	listBookingsKey = "bookings.list"
	getBookingKey   = "bookings.get"
)

// ListBookingsQuery lists bookings from one side of the marketplace: the renter's own trips
// (me), the bookings of the caller's cars (owner), or everything (admin).
type ListBookingsQuery struct {
	Actor    access.Actor `json:"-"`
	Scope    string       `json:"scope" validate:"omitempty,oneof=me owner admin"`
	Status   string       `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
	Approval string       `json:"approval" validate:"omitempty,oneof=pending approved rejected"`
	CarID    string       `json:"carId"`
	Limit    int          `json:"limit" validate:"gte=0,lte=100"`
	Offset   int          `json:"offset" validate:"gte=0"`
}

func (q ListBookingsQuery) Key() string             { return listBookingsKey }
func (q ListBookingsQuery) Principal() access.Actor { return q.Actor }
func (q ListBookingsQuery) AllowedRoles() []domainuser.Role {
	switch domainbooking.Scope(q.Scope) {
	case domainbooking.ScopeAdmin:
		return []domainuser.Role{domainuser.RoleAdmin}
	case domainbooking.ScopeOwner:
		return []domainuser.Role{domainuser.RoleOwner, domainuser.RoleFleet, domainuser.RoleAdmin}
	}
	return nil
}

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	filter := domainbooking.Filter{
		CarID:    domaincars.CarID(strings.TrimSpace(q.CarID)),
		Approval: domainbooking.Approval(q.Approval),
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if status, ok := domainbooking.ParseStatus(q.Status); ok {
		filter.Statuses = []domainbooking.Status{status}
	}
	scope := domainbooking.Scope(q.Scope)
	switch scope {
	case domainbooking.ScopeAdmin:
	case domainbooking.ScopeOwner:
		filter.OwnerID = q.Actor.UserID
	default:
		scope = domainbooking.ScopeMe
		filter.RenterID = q.Actor.UserID
	}
	filter = filter.Normalized()
	items, total, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("bookings listed", "user_id", q.Actor.UserID, "scope", scope, "count", len(items), "total", total)
	}
	return dto.BookingCollection{
		Items: dto.MapBookings(items),
		Page:  dto.Page{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	}, nil
}

type GetBookingQuery struct {
	Actor     access.Actor `json:"-"`
	BookingID string       `json:"bookingId" validate:"required"`
}

func (q GetBookingQuery) Key() string                     { return getBookingKey }
func (q GetBookingQuery) Principal() access.Actor         { return q.Actor }
func (q GetBookingQuery) AllowedRoles() []domainuser.Role { return nil }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := loadForParty(execCtx, unit, q.BookingID, q.Actor)
	if err != nil {
		return dto.BookingDTO{}, err
	}
	return dto.MapBooking(booking), nil
}

var _ queries.Handler[ListBookingsQuery, dto.BookingCollection] = (*ListBookingsHandler)(nil)
var _ queries.Handler[GetBookingQuery, dto.BookingDTO] = (*GetBookingHandler)(nil)
