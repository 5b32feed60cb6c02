package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentcar/internal/domain/cars"
	"rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
	"rentcar/internal/domain/shared/events"
	"rentcar/internal/domain/shared/money"
)

var (
	ErrBookingNotFound            = errors.New("booking: not found")
	ErrCannotCancelCompleted      = errors.New("booking: completed bookings cannot be cancelled")
	ErrCannotCompleteCancelled    = errors.New("booking: cancelled bookings cannot be completed")
	ErrCancelWindowPassed         = errors.New("booking: cancellation window has passed")
	ErrCompleteTooEarly           = errors.New("booking: too early to complete")
	ErrInvalidCharge              = errors.New("booking: extra charges must not be negative")
	ErrApprovalRequiresCompletion = errors.New("booking: approval requires a completed booking")
	ErrInvalidApproval            = errors.New("booking: invalid approval state")
	ErrPaymentOnCancelled         = errors.New("booking: cancelled bookings cannot be paid")
	ErrRenterRequired             = errors.New("booking: renter is required")
	ErrTotalRequired              = errors.New("booking: total amount must be positive")
	ErrNotCancelled               = errors.New("booking: booking is not cancelled")
	ErrVersionConflict            = errors.New("booking: modified concurrently")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the statuses that block the car for overlapping intervals.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type Payment struct {
	Method string
	Status PaymentStatus
}

type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

func ParseApproval(raw string) (Approval, error) {
	switch Approval(strings.ToLower(strings.TrimSpace(raw))) {
	case ApprovalPending:
		return ApprovalPending, nil
	case ApprovalApproved:
		return ApprovalApproved, nil
	case ApprovalRejected:
		return ApprovalRejected, nil
	}
	return "", ErrInvalidApproval
}

type Completion struct {
	CarInspected  bool
	Notes         string
	ChallanAmount int64
	TollAmount    int64
	ChallanProofs []string
	TollProofs    []string
	CompletedAt   time.Time
	CompletedBy   string
	Approval      Approval
	ApprovedBy    string
	ApprovedAt    time.Time
}

type Booking struct {
	ID          BookingID
	CarID       cars.CarID
	RenterID    string
	OwnerID     string
	Car         cars.Snapshot
	Range       daterange.Range
	PricePerDay int64
	TotalAmount money.Money
	PricingMode pricing.Mode
	Status      Status
	Payment     Payment
	Completion  *Completion
	CancelledAt time.Time
	CancelledBy string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

type CreateParams struct {
	ID            BookingID
	Car           *cars.Car
	RenterID      string
	Range         daterange.Range
	Quote         pricing.Quote
	PaymentMethod string
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// NewBooking snapshots the daily rate and quoted total; neither is recomputed later.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.RenterID) == "" {
		return nil, ErrRenterRequired
	}
	if params.Car == nil {
		return nil, cars.ErrNotFound
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Quote.TotalAmount <= 0 {
		return nil, ErrTotalRequired
	}
	method := strings.ToLower(strings.TrimSpace(params.PaymentMethod))
	if method == "" {
		method = "cash"
	}
	payStatus := params.PaymentStatus
	if payStatus != PaymentPaid {
		payStatus = PaymentPending
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:          params.ID,
		CarID:       params.Car.ID,
		RenterID:    params.RenterID,
		OwnerID:     string(params.Car.OwnerID),
		Car:         params.Car.Snapshot(),
		Range:       params.Range.UTC(),
		PricePerDay: params.Car.PricePerDay,
		TotalAmount: money.Money{Amount: params.Quote.TotalAmount, Currency: params.Car.Currency},
		PricingMode: params.Quote.Mode,
		Status:      StatusConfirmed,
		Payment:     Payment{Method: method, Status: payStatus},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(BookingCreated{
		BookingID: b.ID,
		CarID:     b.CarID,
		RenterID:  b.RenterID,
		OwnerID:   b.OwnerID,
		PickupAt:  b.Range.PickupAt,
		DropoffAt: b.Range.DropoffAt,
		Total:     b.TotalAmount,
		At:        now,
	})
	return b, nil
}

// IsParty reports whether the user is the renter or the owner of the booking.
func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (b.RenterID == userID || b.OwnerID == userID)
}

// Cancel moves the booking to cancelled. It returns false without error when the booking
// is already cancelled.
func (b *Booking) Cancel(actorID string, rules Rules, now time.Time) (bool, error) {
	switch b.Status {
	case StatusCompleted:
		return false, ErrCannotCancelCompleted
	case StatusCancelled:
		return false, nil
	}
	if now.After(b.Range.PickupAt.Add(-rules.cancelCutoff())) {
		return false, ErrCancelWindowPassed
	}
	now = now.UTC()
	b.Status = StatusCancelled
	b.CancelledAt = now
	b.CancelledBy = actorID
	b.UpdatedAt = now
	b.Record(BookingCancelled{BookingID: b.ID, CarID: b.CarID, ActorID: actorID, At: now})
	return true, nil
}

type CompleteParams struct {
	ActorID       string
	CarInspected  bool
	Notes         string
	ChallanAmount int64
	TollAmount    int64
	ChallanProofs []string
	TollProofs    []string
}

// Complete closes the rental. It returns false without error when already completed.
// There is no upper bound on how late a booking may be completed.
func (b *Booking) Complete(params CompleteParams, rules Rules, now time.Time) (bool, error) {
	switch b.Status {
	case StatusCancelled:
		return false, ErrCannotCompleteCancelled
	case StatusCompleted:
		return false, nil
	}
	if params.ChallanAmount < 0 || params.TollAmount < 0 {
		return false, ErrInvalidCharge
	}
	if now.Before(b.Range.DropoffAt.Add(-rules.completeEarly())) {
		return false, ErrCompleteTooEarly
	}
	now = now.UTC()
	b.Completion = &Completion{
		CarInspected:  params.CarInspected,
		Notes:         strings.TrimSpace(params.Notes),
		ChallanAmount: params.ChallanAmount,
		TollAmount:    params.TollAmount,
		ChallanProofs: append([]string(nil), params.ChallanProofs...),
		TollProofs:    append([]string(nil), params.TollProofs...),
		CompletedAt:   now,
		CompletedBy:   params.ActorID,
		Approval:      ApprovalPending,
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	b.Record(BookingCompleted{
		BookingID:     b.ID,
		CarID:         b.CarID,
		ActorID:       params.ActorID,
		ChallanAmount: params.ChallanAmount,
		TollAmount:    params.TollAmount,
		At:            now,
	})
	return true, nil
}

// SetApproval records the admin review of a completion. It has no effect on the ledger.
func (b *Booking) SetApproval(state Approval, adminID string, now time.Time) error {
	if b.Status != StatusCompleted || b.Completion == nil {
		return ErrApprovalRequiresCompletion
	}
	if _, err := ParseApproval(string(state)); err != nil {
		return err
	}
	now = now.UTC()
	b.Completion.Approval = state
	b.Completion.ApprovedBy = adminID
	b.Completion.ApprovedAt = now
	b.UpdatedAt = now
	return nil
}

// MarkPaid settles the cash payment. It returns false when the payment was already paid.
func (b *Booking) MarkPaid(method string, now time.Time) (bool, error) {
	if b.Status == StatusCancelled {
		return false, ErrPaymentOnCancelled
	}
	if b.Payment.Status == PaymentPaid {
		return false, nil
	}
	now = now.UTC()
	if method = strings.ToLower(strings.TrimSpace(method)); method != "" {
		b.Payment.Method = method
	}
	b.Payment.Status = PaymentPaid
	b.UpdatedAt = now
	b.Record(BookingPaid{BookingID: b.ID, Total: b.TotalAmount, At: now})
	return true, nil
}

// Scope selects which side of the marketplace a listing is for.
type Scope string

const (
	ScopeMe    Scope = "me"
	ScopeOwner Scope = "owner"
	ScopeAdmin Scope = "admin"
)

type Filter struct {
	RenterID string
	OwnerID  string
	CarID    cars.CarID
	Statuses []Status
	Approval Approval
	Limit    int
	Offset   int
}

func (f Filter) Normalized() Filter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Cursor is a position in (CreatedAt, ID) order. The zero Cursor starts from the oldest
// booking.
type Cursor struct {
	CreatedAt time.Time
	ID        BookingID
}

// CursorOf returns the position right after b.
func CursorOf(b *Booking) Cursor {
	return Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
}

// Precedes reports whether b sorts strictly after the cursor.
func (c Cursor) Precedes(b *Booking) bool {
	if !b.CreatedAt.Equal(c.CreatedAt) {
		return b.CreatedAt.After(c.CreatedAt)
	}
	return b.ID > c.ID
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// HasActiveOverlap reports whether an active booking of the car other than excludeID
	// intersects r.
	HasActiveOverlap(ctx context.Context, carID cars.CarID, r daterange.Range, excludeID BookingID) (bool, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// ListForReconciliation pages through bookings in statuses in (CreatedAt, ID) order,
	// returning at most limit bookings positioned after the cursor.
	ListForReconciliation(ctx context.Context, statuses []Status, after Cursor, limit int) ([]*Booking, error)
}
