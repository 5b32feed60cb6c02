package bookings

import (
	"context"
	"time"

	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	domainpricing "rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
)

// checker applies the booking window rules in a fixed order: dates, car existence, car
// availability, lead time, minimum duration, overlap. Quote and create share it so a create
// never trusts an earlier quote.
type checker struct {
	Pricing *domainpricing.Engine
	Rules   domainbooking.Rules
}

type evaluation struct {
	Car   *domaincars.Car
	Range daterange.Range
	Quote *domainpricing.Quote
}

// evaluate returns whatever it could compute before the first failing rule together with
// that rule's error.
func (c checker) evaluate(ctx context.Context, unit uow.UnitOfWork, carID string, pickupAt, dropoffAt time.Time, now time.Time) (evaluation, error) {
	var out evaluation
	dr, err := daterange.New(pickupAt, dropoffAt)
	if err != nil {
		return out, err
	}
	out.Range = dr
	car, err := unit.Cars().ByID(ctx, domaincars.CarID(carID))
	if err != nil {
		return out, err
	}
	out.Car = car
	quote, err := c.engine().Price(dr.PickupAt, dr.DropoffAt, car.PricePerDay)
	if err != nil {
		return out, err
	}
	out.Quote = &quote
	if !car.Available {
		return out, domainbooking.ErrCarNotAvailable
	}
	if err := c.Rules.CheckWindow(dr, now); err != nil {
		return out, err
	}
	overlap, err := unit.Bookings().HasActiveOverlap(ctx, car.ID, dr, "")
	if err != nil {
		return out, err
	}
	if overlap {
		return out, domainbooking.ErrOverlapping
	}
	return out, nil
}

func (c checker) engine() *domainpricing.Engine {
	if c.Pricing != nil {
		return c.Pricing
	}
	return domainpricing.NewEngine(nil)
}
