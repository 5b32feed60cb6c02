package bookings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentcar/internal/app/dto"
	"rentcar/internal/app/errcode"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/queries"
	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domainpricing "rentcar/internal/domain/pricing"
)

const quoteBookingKey = "bookings.quote"

type QuoteBookingQuery struct {
	CarID     string    `json:"carId" validate:"required"`
	PickupAt  time.Time `json:"pickupAt" validate:"required"`
	DropoffAt time.Time `json:"dropoffAt" validate:"required"`
}

func (q QuoteBookingQuery) Key() string { return quoteBookingKey }

// QuoteResult reports business rule failures in-band: Available is false and Code names the
// rule, while malformed input and unknown cars are returned as errors.
type QuoteResult struct {
	Available bool                 `json:"available"`
	Code      string               `json:"code,omitempty"`
	Message   string               `json:"message,omitempty"`
	Car       *dto.CarSnapshotDTO  `json:"car,omitempty"`
	PickupAt  time.Time            `json:"pickupAt"`
	DropoffAt time.Time            `json:"dropoffAt"`
	Pricing   *domainpricing.Quote `json:"pricing,omitempty"`
}

type QuoteBookingHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    *domainpricing.Engine
	Rules      domainbooking.Rules
	Clock      func() time.Time
	Logger     *slog.Logger
}

var softFailures = []error{
	domainbooking.ErrCarNotAvailable,
	domainbooking.ErrPickupTooSoon,
	domainbooking.ErrDurationTooShort,
	domainbooking.ErrOverlapping,
}

func (h *QuoteBookingHandler) Handle(ctx context.Context, q QuoteBookingQuery) (QuoteResult, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return QuoteResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	now := handlersupport.Now(h.Clock)
	eval, err := checker{Pricing: h.Pricing, Rules: h.Rules}.evaluate(execCtx, unit, q.CarID, q.PickupAt, q.DropoffAt, now)
	result := QuoteResult{
		Available: err == nil,
		PickupAt:  eval.Range.PickupAt,
		DropoffAt: eval.Range.DropoffAt,
		Pricing:   eval.Quote,
	}
	if eval.Car != nil {
		snap := dto.MapCarSnapshot(eval.Car.Snapshot())
		result.Car = &snap
	}
	if err == nil {
		return result, nil
	}
	if !isSoft(err) {
		return QuoteResult{}, err
	}
	code := errcode.Of(err)
	result.Code = string(code)
	result.Message = errcode.Message(code)
	if h.Logger != nil {
		h.Logger.Debug("quote unavailable", "car_id", q.CarID, "code", code)
	}
	return result, nil
}

func isSoft(err error) bool {
	for _, target := range softFailures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var _ queries.Handler[QuoteBookingQuery, QuoteResult] = (*QuoteBookingHandler)(nil)
