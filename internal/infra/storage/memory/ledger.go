package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainledger "rentcar/internal/domain/ledger"
)

// LedgerRepository holds postings in insertion order. A pair is always written under one
// lock, so readers never see half of it.
type LedgerRepository struct {
	mu   sync.RWMutex
	rows []domainledger.Transaction
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) UpsertPair(ctx context.Context, pair domainledger.Pair) error {
	if !pair.Balanced() {
		return domainledger.ErrUnbalancedPair
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range pair.Rows() {
		if i := r.indexOf(row.Key()); i >= 0 {
			existing := r.rows[i]
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			r.rows[i] = row
			continue
		}
		r.rows = append(r.rows, row)
	}
	return nil
}

func (r *LedgerRepository) InsertPair(ctx context.Context, pair domainledger.Pair) error {
	if !pair.Balanced() {
		return domainledger.ErrUnbalancedPair
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, pair.Rows()...)
	return nil
}

func (r *LedgerRepository) MarkBookingCancelled(ctx context.Context, bookingID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.rows {
		if r.rows[i].BookingID != bookingID {
			continue
		}
		r.rows[i].Type = domainledger.TypeCancel
		r.rows[i].Status = domainledger.StatusRefunded
		r.rows[i].UpdatedAt = now.UTC()
		n++
	}
	return n, nil
}

func (r *LedgerRepository) UpdatePairStatus(ctx context.Context, bookingID string, typ domainledger.Type, status domainledger.Status, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.rows {
		if r.rows[i].BookingID != bookingID || r.rows[i].Type != typ {
			continue
		}
		r.rows[i].Status = status
		r.rows[i].UpdatedAt = now.UTC()
		n++
	}
	return n, nil
}

func (r *LedgerRepository) ByBooking(ctx context.Context, bookingID string) ([]domainledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainledger.Transaction, 0, 2)
	for _, row := range r.rows {
		if row.BookingID == bookingID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *LedgerRepository) ListByParty(ctx context.Context, party domainledger.Party, partyID string) ([]domainledger.Transaction, error) {
	rows, _, err := r.list(domainledger.Filter{Party: party, PartyID: partyID}, false)
	return rows, err
}

func (r *LedgerRepository) List(ctx context.Context, filter domainledger.Filter) ([]domainledger.Transaction, int, error) {
	return r.list(filter.Normalized(), true)
}

func (r *LedgerRepository) list(f domainledger.Filter, paginate bool) ([]domainledger.Transaction, int, error) {
	r.mu.RLock()
	matches := make([]domainledger.Transaction, 0)
	for _, row := range r.rows {
		if f.BookingID != "" && row.BookingID != f.BookingID {
			continue
		}
		if f.Party != "" && row.Party != f.Party {
			continue
		}
		if f.PartyID != "" && row.PartyID != f.PartyID {
			continue
		}
		if f.Type != "" && row.Type != f.Type {
			continue
		}
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		matches = append(matches, row)
	}
	r.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	total := len(matches)
	if !paginate {
		return matches, total, nil
	}
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return matches[start:end], total, nil
}

func (r *LedgerRepository) indexOf(key domainledger.NaturalKey) int {
	for i, row := range r.rows {
		if row.Key() == key {
			return i
		}
	}
	return -1
}

var _ domainledger.Repository = (*LedgerRepository)(nil)
