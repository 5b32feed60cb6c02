package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonMonotonicInterval(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	_, err := New(now, now)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(now, now.Add(-time.Hour))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, now)
	require.ErrorIs(t, err, ErrInvalidRange)

	r, err := New(now, now.Add(5*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, r.Hours(), 1e-9)
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	existing := Range{PickupAt: base, DropoffAt: base.Add(10 * time.Hour)}

	cases := []struct {
		name  string
		other Range
		want  bool
	}{
		{"ends at pickup", Range{base.Add(-5 * time.Hour), base}, false},
		{"starts at dropoff", Range{base.Add(10 * time.Hour), base.Add(12 * time.Hour)}, false},
		{"inside", Range{base.Add(time.Hour), base.Add(2 * time.Hour)}, true},
		{"covers", Range{base.Add(-time.Hour), base.Add(11 * time.Hour)}, true},
		{"tail overlap", Range{base.Add(9 * time.Hour), base.Add(11 * time.Hour)}, true},
		{"head overlap", Range{base.Add(-time.Hour), base.Add(time.Minute)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, existing.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(existing))
		})
	}
}

func TestNewKeepsLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2026, 3, 7, 23, 30, 0, 0, loc)
	r, err := New(start, start.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, loc, r.PickupAt.Location())
	assert.Equal(t, time.UTC, r.UTC().PickupAt.Location())
}
