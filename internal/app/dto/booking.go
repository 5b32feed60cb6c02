package dto

import (
	"time"

	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
)

type CarSnapshotDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Model       string `json:"model,omitempty"`
	PlateNumber string `json:"plateNumber"`
}

type PaymentDTO struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

type CompletionDTO struct {
	CarInspected  bool       `json:"carInspected"`
	Notes         string     `json:"notes,omitempty"`
	ChallanAmount int64      `json:"challanAmount"`
	TollAmount    int64      `json:"tollAmount"`
	ChallanProofs []string   `json:"challanProofs"`
	TollProofs    []string   `json:"tollProofs"`
	CompletedAt   time.Time  `json:"completedAt"`
	CompletedBy   string     `json:"completedBy"`
	Approval      string     `json:"approval"`
	ApprovedBy    string     `json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
}

type BookingDTO struct {
	ID          string         `json:"id"`
	CarID       string         `json:"carId"`
	Car         CarSnapshotDTO `json:"car"`
	RenterID    string         `json:"renterId"`
	OwnerID     string         `json:"ownerId"`
	PickupAt    time.Time      `json:"pickupAt"`
	DropoffAt   time.Time      `json:"dropoffAt"`
	PricePerDay int64          `json:"pricePerDay"`
	Total       MoneyDTO       `json:"totalAmount"`
	PricingMode string         `json:"pricingMode"`
	Status      string         `json:"status"`
	Payment     PaymentDTO     `json:"payment"`
	Completion  *CompletionDTO `json:"completion,omitempty"`
	CancelledAt *time.Time     `json:"cancelledAt,omitempty"`
	CancelledBy string         `json:"cancelledBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type BookingCollection struct {
	Items []BookingDTO `json:"items"`
	Page  Page         `json:"page"`
}

func MapCarSnapshot(s domaincars.Snapshot) CarSnapshotDTO {
	return CarSnapshotDTO{
		ID:          s.CarID,
		Name:        s.Name,
		Brand:       s.Brand,
		Model:       s.Model,
		PlateNumber: s.PlateNumber,
	}
}

func MapBooking(b *domainbooking.Booking) BookingDTO {
	out := BookingDTO{
		ID:          string(b.ID),
		CarID:       string(b.CarID),
		Car:         MapCarSnapshot(b.Car),
		RenterID:    b.RenterID,
		OwnerID:     b.OwnerID,
		PickupAt:    b.Range.PickupAt,
		DropoffAt:   b.Range.DropoffAt,
		PricePerDay: b.PricePerDay,
		Total:       MapMoney(b.TotalAmount),
		PricingMode: string(b.PricingMode),
		Status:      string(b.Status),
		Payment:     PaymentDTO{Method: b.Payment.Method, Status: string(b.Payment.Status)},
		CancelledBy: b.CancelledBy,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if !b.CancelledAt.IsZero() {
		at := b.CancelledAt
		out.CancelledAt = &at
	}
	if c := b.Completion; c != nil {
		completion := &CompletionDTO{
			CarInspected:  c.CarInspected,
			Notes:         c.Notes,
			ChallanAmount: c.ChallanAmount,
			TollAmount:    c.TollAmount,
			ChallanProofs: nonNil(c.ChallanProofs),
			TollProofs:    nonNil(c.TollProofs),
			CompletedAt:   c.CompletedAt,
			CompletedBy:   c.CompletedBy,
			Approval:      string(c.Approval),
			ApprovedBy:    c.ApprovedBy,
		}
		if !c.ApprovedAt.IsZero() {
			at := c.ApprovedAt
			completion.ApprovedAt = &at
		}
		out.Completion = completion
	}
	return out
}

func MapBookings(items []*domainbooking.Booking) []BookingDTO {
	out := make([]BookingDTO, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b))
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
