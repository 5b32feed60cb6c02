package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-04 is a Wednesday, 2026-03-07 a Saturday.
var (
	wednesday = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	friday    = time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
)

func TestPriceUpToOneDayChargesDailyMinimum(t *testing.T) {
	engine := NewEngine(nil)
	for _, hours := range []float64{0.5, 4, 12, 23.99, 24} {
		dropoff := wednesday.Add(time.Duration(hours * float64(time.Hour)))
		q, err := engine.Price(wednesday, dropoff, 1200)
		require.NoError(t, err)
		assert.Equal(t, ModeDailyMinimum, q.Mode, "hours=%v", hours)
		assert.Equal(t, int64(1200), q.TotalAmount)
		assert.Equal(t, int64(1), q.BillableDays)
	}
}

func TestPriceExactDays(t *testing.T) {
	engine := NewEngine(nil)
	for days := int64(2); days <= 9; days++ {
		q, err := engine.Price(friday, friday.Add(time.Duration(days)*24*time.Hour), 1500)
		require.NoError(t, err)
		assert.Equal(t, ModeDailyExact, q.Mode)
		assert.Equal(t, days*1500, q.TotalAmount)
		assert.Equal(t, days, q.BillableDays)
		assert.Empty(t, q.Breakdown.Hours)
	}
}

func TestPriceWeekdayRemainder(t *testing.T) {
	engine := NewEngine(nil)
	q, err := engine.Price(wednesday, wednesday.Add(26*time.Hour), 1200)
	require.NoError(t, err)

	assert.Equal(t, ModeDailyPlusHours, q.Mode)
	assert.Equal(t, int64(1), q.Breakdown.FullDays)
	assert.InDelta(t, 2.0, q.Breakdown.RemainderHours, 1e-9)
	assert.Equal(t, 2, q.Breakdown.WeekdayHours)
	assert.Equal(t, 0, q.Breakdown.WeekendHours)
	assert.Equal(t, int64(1300), q.TotalAmount)
	assert.Equal(t, 50.0, q.PricePerHourWeekday)
	assert.Equal(t, 55.0, q.PricePerHourWeekend)
}

func TestPriceWeekendRemainderUsesSurcharge(t *testing.T) {
	engine := NewEngine(nil)
	// Friday 09:00 + 1 day lands on Saturday 09:00; the three partial hours are weekend hours.
	q, err := engine.Price(friday, friday.Add(27*time.Hour), 1200)
	require.NoError(t, err)

	assert.Equal(t, ModeDailyPlusHours, q.Mode)
	assert.Equal(t, 3, q.Breakdown.WeekendHours)
	assert.Equal(t, 0, q.Breakdown.WeekdayHours)
	assert.Equal(t, int64(1200+165), q.TotalAmount)
}

func TestPriceMixedBoundaryHours(t *testing.T) {
	engine := NewEngine(nil)
	pickup := time.Date(2026, 3, 5, 22, 0, 0, 0, time.UTC) // Thursday 22:00
	// +1 day = Friday 22:00, partial hours 22:00 and 23:00 Friday, 00:00 Saturday.
	q, err := engine.Price(pickup, pickup.Add(27*time.Hour), 2400)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Breakdown.WeekdayHours)
	assert.Equal(t, 1, q.Breakdown.WeekendHours)
	assert.Equal(t, int64(2400+100+100+110), q.TotalAmount)
}

func TestPriceFractionalRemainderRoundsUpHoursAndTotal(t *testing.T) {
	engine := NewEngine(nil)
	q, err := engine.Price(wednesday, wednesday.Add(25*time.Hour+30*time.Minute), 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Breakdown.PartialHours)
	assert.Equal(t, q.Breakdown.PartialHours, q.Breakdown.WeekdayHours+q.Breakdown.WeekendHours)
	// 1000 + 2 * 41.666.. = 1083.33 -> 1083
	assert.Equal(t, int64(1083), q.TotalAmount)
}

func TestPriceUsesConfiguredLocationForWeekend(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	pickup := time.Date(2026, 3, 5, 20, 0, 0, 0, time.UTC) // Thursday UTC
	utcQuote, err := NewEngine(nil).Price(pickup, pickup.Add(26*time.Hour), 2400)
	require.NoError(t, err)
	istQuote, err := NewEngine(ist).Price(pickup, pickup.Add(26*time.Hour), 2400)
	require.NoError(t, err)

	// Friday 20:00/21:00 UTC are weekday; in IST those are Saturday 01:30/02:30.
	assert.Equal(t, 2, utcQuote.Breakdown.WeekdayHours)
	assert.Equal(t, 2, istQuote.Breakdown.WeekendHours)
	assert.Greater(t, istQuote.TotalAmount, utcQuote.TotalAmount)
}

func TestPriceRemainderInvariants(t *testing.T) {
	engine := NewEngine(nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for offset := 0; offset < 7*24; offset += 5 {
		for minutes := 24*60 + 1; minutes < 4*24*60; minutes += 97 {
			pickup := start.Add(time.Duration(offset) * time.Hour)
			dropoff := pickup.Add(time.Duration(minutes) * time.Minute)
			q, err := engine.Price(pickup, dropoff, 1799)
			require.NoError(t, err)
			if q.Mode != ModeDailyPlusHours {
				continue
			}
			fullDays := q.Breakdown.FullDays
			assert.GreaterOrEqual(t, q.TotalAmount, fullDays*1799)
			assert.Equal(t, int(math.Ceil(q.Breakdown.RemainderHours)), q.Breakdown.WeekdayHours+q.Breakdown.WeekendHours)
		}
	}
}

func TestPriceRejectsInvalidInput(t *testing.T) {
	engine := NewEngine(nil)
	_, err := engine.Price(wednesday, wednesday, 1000)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = engine.Price(wednesday, wednesday.Add(-time.Hour), 1000)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = engine.Price(wednesday, wednesday.Add(time.Hour), 0)
	require.ErrorIs(t, err, ErrInvalidRate)
}
