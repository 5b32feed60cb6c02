package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainbooking "rentcar/internal/domain/booking"
	domaincars "rentcar/internal/domain/cars"
	"rentcar/internal/domain/shared/daterange"
)

// CarRepository is an in-memory implementation for local runs and tests.
type CarRepository struct {
	mu    sync.RWMutex
	items map[domaincars.CarID]*domaincars.Car
}

func NewCarRepository() *CarRepository {
	return &CarRepository{items: make(map[domaincars.CarID]*domaincars.Car)}
}

func (r *CarRepository) ByID(ctx context.Context, id domaincars.CarID) (*domaincars.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	car, ok := r.items[id]
	if !ok {
		return nil, domaincars.ErrNotFound
	}
	return cloneCar(car), nil
}

func (r *CarRepository) Save(ctx context.Context, car *domaincars.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[car.ID] = cloneCar(car)
	return nil
}

func (r *CarRepository) Delete(ctx context.Context, id domaincars.CarID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domaincars.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *CarRepository) ListByOwner(ctx context.Context, owner domaincars.OwnerID) ([]*domaincars.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaincars.Car, 0)
	for _, car := range r.items {
		if car.OwnerID == owner {
			out = append(out, cloneCar(car))
		}
	}
	return out, nil
}

// DistinctCities compares case-insensitively and keeps the first spelling seen.
func (r *CarRepository) DistinctCities(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, car := range r.items {
		city := strings.TrimSpace(car.Location.City)
		key := strings.ToLower(city)
		if city == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, city)
	}
	return out, nil
}

func cloneCar(c *domaincars.Car) *domaincars.Car {
	cp := *c
	cp.Images = append([]string(nil), c.Images...)
	cp.Documents = append([]string(nil), c.Documents...)
	return &cp
}

// BookingRepository keeps bookings in memory. Save enforces the optimistic version.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[b.ID]; ok {
		if existing.Version != b.Version {
			return domainbooking.ErrVersionConflict
		}
	} else if b.Version != 0 {
		return domainbooking.ErrVersionConflict
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) HasActiveOverlap(ctx context.Context, carID domaincars.CarID, rng daterange.Range, excludeID domainbooking.BookingID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.items {
		if b.CarID != carID || b.ID == excludeID || !b.Status.Active() {
			continue
		}
		if b.Range.Overlaps(rng) {
			return true, nil
		}
	}
	return false, nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, int, error) {
	filter = filter.Normalized()
	r.mu.RLock()
	matches := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if matchesBooking(b, filter) {
			matches = append(matches, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	total := len(matches)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	out := make([]*domainbooking.Booking, 0, end-start)
	for _, b := range matches[start:end] {
		out = append(out, cloneBooking(b))
	}
	return out, total, nil
}

func (r *BookingRepository) ListForReconciliation(ctx context.Context, statuses []domainbooking.Status, after domainbooking.Cursor, limit int) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if !statusIn(b.Status, statuses) || !after.Precedes(b) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool {
		return domainbooking.CursorOf(out[i]).Precedes(out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesBooking(b *domainbooking.Booking, f domainbooking.Filter) bool {
	if f.RenterID != "" && b.RenterID != f.RenterID {
		return false
	}
	if f.OwnerID != "" && b.OwnerID != f.OwnerID {
		return false
	}
	if f.CarID != "" && b.CarID != f.CarID {
		return false
	}
	if len(f.Statuses) > 0 && !statusIn(b.Status, f.Statuses) {
		return false
	}
	if f.Approval != "" && (b.Completion == nil || b.Completion.Approval != f.Approval) {
		return false
	}
	return true
}

func statusIn(s domainbooking.Status, set []domainbooking.Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	cp := *b
	cp.ClearEvents()
	if b.Completion != nil {
		completion := *b.Completion
		completion.ChallanProofs = append([]string(nil), b.Completion.ChallanProofs...)
		completion.TollProofs = append([]string(nil), b.Completion.TollProofs...)
		cp.Completion = &completion
	}
	return &cp
}

var _ domaincars.Repository = (*CarRepository)(nil)
var _ domainbooking.Repository = (*BookingRepository)(nil)
