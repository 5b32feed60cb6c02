package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "rentcar/internal/domain/booking"
	"rentcar/internal/domain/cars"
	domainledger "rentcar/internal/domain/ledger"
	"rentcar/internal/domain/pricing"
	"rentcar/internal/domain/shared/daterange"
	"rentcar/internal/domain/shared/money"
)

func TestKeyedLockerSerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "car-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Empty(t, l.locks)
}

func TestKeyedLockerHonoursContext(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), "car-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "car-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "car-2")
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	assert.Empty(t, l.locks)
}

func bookingPair(t *testing.T, status domainledger.Status) domainledger.Pair {
	t.Helper()
	var seq int
	next := func() string {
		seq++
		return fmt.Sprintf("%s-tx-%d", status, seq)
	}
	pair, err := domainledger.NewPair(domainledger.PairParams{
		BookingID:   "bk-1",
		OwnerID:     "owner-1",
		RenterID:    "renter-1",
		Car:         cars.Snapshot{CarID: "car-1", Name: "Swift", PlateNumber: "KA01AB1234"},
		Type:        domainledger.TypeBooking,
		Status:      status,
		Amount:      money.Must(2400, "INR"),
		Now:         time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		IDGenerator: next,
	})
	require.NoError(t, err)
	return pair
}

func TestLedgerUpsertPairKeepsOneRowPerParty(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()

	first := bookingPair(t, domainledger.StatusPending)
	require.NoError(t, repo.UpsertPair(ctx, first))
	require.NoError(t, repo.UpsertPair(ctx, bookingPair(t, domainledger.StatusPaid)))

	rows, err := repo.ByBooking(ctx, "bk-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, domainledger.StatusPaid, row.Status)
		if row.Party == domainledger.PartyOwner {
			assert.Equal(t, first.Owner.ID, row.ID)
		}
	}
}

func TestLedgerMarkBookingCancelledRefundsAllRows(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()
	require.NoError(t, repo.UpsertPair(ctx, bookingPair(t, domainledger.StatusPending)))

	n, err := repo.MarkBookingCancelled(ctx, "bk-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, total, err := repo.List(ctx, domainledger.Filter{BookingID: "bk-1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, row := range rows {
		assert.Equal(t, domainledger.TypeCancel, row.Type)
		assert.Equal(t, domainledger.StatusRefunded, row.Status)
	}
}

func TestListForReconciliationPagesByCursor(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	created := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	car, err := cars.NewCar(cars.CreateParams{
		ID: "car-1", OwnerID: "owner-1", Name: "Swift", PlateNumber: "KA01AB1234",
		PricePerDay: 1200, Location: cars.Location{City: "Bengaluru"}, Now: created,
	})
	require.NoError(t, err)
	// bk-b and bk-c share a timestamp so the ID breaks the tie.
	offsets := map[string]time.Duration{"bk-d": 2 * time.Minute, "bk-c": time.Minute, "bk-b": time.Minute, "bk-a": 0}
	for id, offset := range offsets {
		at := created.Add(offset)
		rng, err := daterange.New(created.Add(48*time.Hour), created.Add(72*time.Hour))
		require.NoError(t, err)
		quote, err := pricing.NewEngine(time.UTC).Price(rng.PickupAt, rng.DropoffAt, 1200)
		require.NoError(t, err)
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID: domainbooking.BookingID(id), Car: car, RenterID: "renter-1", Range: rng, Quote: quote, CreatedAt: at,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, b))
	}
	statuses := []domainbooking.Status{domainbooking.StatusConfirmed}

	var seen []domainbooking.BookingID
	var after domainbooking.Cursor
	for {
		page, err := repo.ListForReconciliation(ctx, statuses, after, 3)
		require.NoError(t, err)
		for _, b := range page {
			seen = append(seen, b.ID)
		}
		if len(page) < 3 {
			break
		}
		after = domainbooking.CursorOf(page[len(page)-1])
	}
	assert.Equal(t, []domainbooking.BookingID{"bk-a", "bk-b", "bk-c", "bk-d"}, seen)
}
