package pricing

import (
	"errors"
	"math"
	"time"
)

var (
	ErrInvalidDuration = errors.New("pricing: rental duration must be positive and finite")
	ErrInvalidRate     = errors.New("pricing: price per day must be positive")
)

type Mode string

const (
	ModeDailyMinimum   Mode = "daily-minimum"
	ModeDailyExact     Mode = "daily-exact"
	ModeDailyPlusHours Mode = "daily-plus-weekend-hourly"
)

const (
	hoursPerDay       = 24
	weekendMultiplier = 1.10
	remainderEpsilon  = 1e-9
)

// HourCharge is one billed partial hour after the last full day.
type HourCharge struct {
	StartsAt time.Time `json:"startsAt"`
	Weekend  bool      `json:"weekend"`
	Rate     float64   `json:"rate"`
}

type Breakdown struct {
	TotalHours     float64      `json:"totalHours"`
	FullDays       int64        `json:"fullDays"`
	RemainderHours float64      `json:"remainderHours"`
	PartialHours   int          `json:"partialHours"`
	WeekdayHours   int          `json:"weekdayHours"`
	WeekendHours   int          `json:"weekendHours"`
	BaseAmount     int64        `json:"baseAmount"`
	HourlyAmount   float64      `json:"hourlyAmount"`
	Hours          []HourCharge `json:"hours,omitempty"`
}

type Quote struct {
	Mode                Mode      `json:"mode"`
	BillableDays        int64     `json:"billableDays"`
	TotalAmount         int64     `json:"totalAmount"`
	PricePerDay         int64     `json:"pricePerDay"`
	PricePerHourWeekday float64   `json:"pricePerHourWeekday"`
	PricePerHourWeekend float64   `json:"pricePerHourWeekend"`
	Breakdown           Breakdown `json:"breakdown"`
}

// Engine prices a rental under the blended daily + weekday/weekend hourly model.
// Location decides which calendar day an hour falls on; nil means the pickup's own zone.
type Engine struct {
	Location *time.Location
}

func NewEngine(loc *time.Location) *Engine {
	return &Engine{Location: loc}
}

func (e *Engine) Price(pickupAt, dropoffAt time.Time, pricePerDay int64) (Quote, error) {
	if pricePerDay <= 0 {
		return Quote{}, ErrInvalidRate
	}
	totalHours := dropoffAt.Sub(pickupAt).Hours()
	if totalHours <= 0 || math.IsNaN(totalHours) || math.IsInf(totalHours, 0) {
		return Quote{}, ErrInvalidDuration
	}

	dayRate := float64(pricePerDay)
	weekdayHourly := dayRate / hoursPerDay
	weekendHourly := weekdayHourly * weekendMultiplier
	quote := Quote{
		PricePerDay:         pricePerDay,
		PricePerHourWeekday: round2(weekdayHourly),
		PricePerHourWeekend: round2(round2(weekdayHourly) * weekendMultiplier),
		Breakdown:           Breakdown{TotalHours: totalHours},
	}

	if totalHours <= hoursPerDay {
		quote.Mode = ModeDailyMinimum
		quote.BillableDays = 1
		quote.TotalAmount = pricePerDay
		quote.Breakdown.BaseAmount = pricePerDay
		return quote, nil
	}

	fullDays := int64(math.Floor(totalHours / hoursPerDay))
	remainder := totalHours - float64(fullDays*hoursPerDay)
	base := fullDays * pricePerDay
	quote.BillableDays = fullDays
	quote.Breakdown.FullDays = fullDays
	quote.Breakdown.BaseAmount = base

	if math.Abs(remainder) < remainderEpsilon {
		quote.Mode = ModeDailyExact
		quote.TotalAmount = base
		return quote, nil
	}

	quote.Mode = ModeDailyPlusHours
	quote.Breakdown.RemainderHours = remainder
	partial := int(math.Ceil(remainder))
	quote.Breakdown.PartialHours = partial
	quote.Breakdown.Hours = make([]HourCharge, 0, partial)

	loc := e.location(pickupAt)
	start := pickupAt.Add(time.Duration(fullDays) * hoursPerDay * time.Hour)
	hourly := 0.0
	for i := 0; i < partial; i++ {
		at := start.Add(time.Duration(i) * time.Hour).In(loc)
		charge := HourCharge{StartsAt: at, Rate: weekdayHourly}
		if isWeekend(at) {
			charge.Weekend = true
			charge.Rate = weekendHourly
			quote.Breakdown.WeekendHours++
		} else {
			quote.Breakdown.WeekdayHours++
		}
		hourly += charge.Rate
		quote.Breakdown.Hours = append(quote.Breakdown.Hours, charge)
	}
	quote.Breakdown.HourlyAmount = round2(hourly)
	quote.TotalAmount = int64(math.Round(float64(base) + hourly))
	return quote, nil
}

func (e *Engine) location(pickupAt time.Time) *time.Location {
	if e != nil && e.Location != nil {
		return e.Location
	}
	return pickupAt.Location()
}

func isWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
