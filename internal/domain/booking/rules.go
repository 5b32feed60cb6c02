package booking

import (
	"errors"
	"time"

	"rentcar/internal/domain/shared/daterange"
)

var (
	ErrPickupTooSoon    = errors.New("booking: pickup is too soon")
	ErrDurationTooShort = errors.New("booking: rental duration is too short")
	ErrCarNotAvailable  = errors.New("booking: car is not available")
	ErrOverlapping      = errors.New("booking: car already booked for an overlapping interval")
)

const (
	DefaultLeadTime      = 3 * time.Hour
	DefaultMinDuration   = 4 * time.Hour
	DefaultCancelCutoff  = 3 * time.Hour
	DefaultCompleteEarly = time.Hour
)

// Rules are the temporal constraints applied to booking windows and transitions.
type Rules struct {
	LeadTime      time.Duration
	MinDuration   time.Duration
	CancelCutoff  time.Duration
	CompleteEarly time.Duration
}

func DefaultRules() Rules {
	return Rules{
		LeadTime:      DefaultLeadTime,
		MinDuration:   DefaultMinDuration,
		CancelCutoff:  DefaultCancelCutoff,
		CompleteEarly: DefaultCompleteEarly,
	}
}

// CheckWindow validates lead time first, then minimum duration.
func (r Rules) CheckWindow(dr daterange.Range, now time.Time) error {
	if dr.PickupAt.Before(now.Add(r.leadTime())) {
		return ErrPickupTooSoon
	}
	if dr.Duration() < r.minDuration() {
		return ErrDurationTooShort
	}
	return nil
}

func (r Rules) leadTime() time.Duration {
	if r.LeadTime <= 0 {
		return DefaultLeadTime
	}
	return r.LeadTime
}

func (r Rules) minDuration() time.Duration {
	if r.MinDuration <= 0 {
		return DefaultMinDuration
	}
	return r.MinDuration
}

func (r Rules) cancelCutoff() time.Duration {
	if r.CancelCutoff <= 0 {
		return DefaultCancelCutoff
	}
	return r.CancelCutoff
}

func (r Rules) completeEarly() time.Duration {
	if r.CompleteEarly <= 0 {
		return DefaultCompleteEarly
	}
	return r.CompleteEarly
}
