package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: dropoff must be after pickup")
)

// Range represents a half-open rental interval [PickupAt, DropoffAt).
type Range struct {
	PickupAt  time.Time
	DropoffAt time.Time
}

// New validates the interval. Locations are preserved so pricing can evaluate
// calendar days in the pickup timezone.
func New(pickupAt, dropoffAt time.Time) (Range, error) {
	r := Range{PickupAt: pickupAt, DropoffAt: dropoffAt}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.PickupAt.IsZero() || r.DropoffAt.IsZero() {
		return ErrInvalidRange
	}
	if !r.DropoffAt.After(r.PickupAt) {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Duration() time.Duration {
	return r.DropoffAt.Sub(r.PickupAt)
}

func (r Range) Hours() float64 {
	return r.Duration().Hours()
}

// Overlaps applies the half-open rule: other.PickupAt < r.DropoffAt && other.DropoffAt > r.PickupAt.
func (r Range) Overlaps(other Range) bool {
	return other.PickupAt.Before(r.DropoffAt) && other.DropoffAt.After(r.PickupAt)
}

func (r Range) Contains(t time.Time) bool {
	return (t.Equal(r.PickupAt) || t.After(r.PickupAt)) && t.Before(r.DropoffAt)
}

// UTC returns the same interval normalized for storage.
func (r Range) UTC() Range {
	return Range{PickupAt: r.PickupAt.UTC(), DropoffAt: r.DropoffAt.UTC()}
}
