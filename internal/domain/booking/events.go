package booking

import (
	"time"

	"rentcar/internal/domain/cars"
	"rentcar/internal/domain/shared/money"
)

type BookingCreated struct {
	BookingID BookingID   `json:"bookingId"`
	CarID     cars.CarID  `json:"carId"`
	RenterID  string      `json:"renterId"`
	OwnerID   string      `json:"ownerId"`
	PickupAt  time.Time   `json:"pickupAt"`
	DropoffAt time.Time   `json:"dropoffAt"`
	Total     money.Money `json:"total"`
	At        time.Time   `json:"at"`
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID  `json:"bookingId"`
	CarID     cars.CarID `json:"carId"`
	ActorID   string     `json:"actorId"`
	At        time.Time  `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID     BookingID  `json:"bookingId"`
	CarID         cars.CarID `json:"carId"`
	ActorID       string     `json:"actorId"`
	ChallanAmount int64      `json:"challanAmount"`
	TollAmount    int64      `json:"tollAmount"`
	At            time.Time  `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingPaid struct {
	BookingID BookingID   `json:"bookingId"`
	Total     money.Money `json:"total"`
	At        time.Time   `json:"at"`
}

func (e BookingPaid) EventName() string     { return "booking.paid" }
func (e BookingPaid) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }
