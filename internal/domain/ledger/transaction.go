package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentcar/internal/domain/cars"
	"rentcar/internal/domain/shared/money"
)

var (
	ErrNonPositiveAmount = errors.New("ledger: posting amount must be positive")
	ErrBookingRequired   = errors.New("ledger: booking reference is required")
	ErrPartyRequired     = errors.New("ledger: owner and renter are required")
	ErrUnbalancedPair    = errors.New("ledger: owner and renter rows differ in amount")
	ErrInvalidType       = errors.New("ledger: invalid transaction type")
	ErrInvalidStatus     = errors.New("ledger: invalid transaction status")
	ErrRefundExceeds     = errors.New("ledger: refund exceeds booking total")
)

type TransactionID string

type Party string

const (
	PartyOwner  Party = "owner"
	PartyRenter Party = "renter"
)

type Effect string

const (
	EffectCredit Effect = "credit"
	EffectDebit  Effect = "debit"
)

type Type string

const (
	TypeBooking    Type = "booking"
	TypeRefund     Type = "refund"
	TypeFee        Type = "fee"
	TypeCancel     Type = "cancel"
	TypePayout     Type = "payout"
	TypeWithdrawal Type = "withdrawal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusDeclined   Status = "declined"
)

// Transaction is a single posting. Amount is always a non-negative magnitude; the sign
// lives in Effect.
type Transaction struct {
	ID        TransactionID
	BookingID string
	Party     Party
	PartyID   string
	Car       cars.Snapshot
	Type      Type
	Effect    Effect
	Status    Status
	Amount    money.Money
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NaturalKey identifies the at-most-one posting per booking, party and event type.
type NaturalKey struct {
	BookingID string
	Party     Party
	Type      Type
}

func (t Transaction) Key() NaturalKey {
	return NaturalKey{BookingID: t.BookingID, Party: t.Party, Type: t.Type}
}

// Signed returns the amount from the party's perspective: credits positive, debits negative.
func (t Transaction) Signed() int64 {
	if t.Effect == EffectDebit {
		return -t.Amount.Amount
	}
	return t.Amount.Amount
}

// Pair is the matched owner/renter posting for one money-moving booking event.
type Pair struct {
	Owner  Transaction
	Renter Transaction
}

func (p Pair) Rows() []Transaction {
	return []Transaction{p.Owner, p.Renter}
}

func (p Pair) Balanced() bool {
	return p.Owner.Amount == p.Renter.Amount &&
		p.Owner.BookingID == p.Renter.BookingID &&
		p.Owner.Type == p.Renter.Type &&
		p.Owner.Effect != p.Renter.Effect
}

type PairParams struct {
	BookingID   string
	OwnerID     string
	RenterID    string
	Car         cars.Snapshot
	Type        Type
	Status      Status
	Amount      money.Money
	Note        string
	Now         time.Time
	IDGenerator func() string
}

// NewPair builds the matched rows. Booking and fee events credit the owner and debit the
// renter; refunds move money back, so the effects are mirrored.
func NewPair(params PairParams) (Pair, error) {
	if strings.TrimSpace(params.BookingID) == "" {
		return Pair{}, ErrBookingRequired
	}
	if strings.TrimSpace(params.OwnerID) == "" || strings.TrimSpace(params.RenterID) == "" {
		return Pair{}, ErrPartyRequired
	}
	if !params.Amount.IsPositive() {
		return Pair{}, ErrNonPositiveAmount
	}
	if !params.Type.Valid() {
		return Pair{}, ErrInvalidType
	}
	status := params.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return Pair{}, ErrInvalidStatus
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	ownerEffect, renterEffect := EffectCredit, EffectDebit
	if params.Type == TypeRefund {
		ownerEffect, renterEffect = EffectDebit, EffectCredit
	}
	row := func(party Party, partyID string, effect Effect) Transaction {
		var id TransactionID
		if params.IDGenerator != nil {
			id = TransactionID(params.IDGenerator())
		}
		return Transaction{
			ID:        id,
			BookingID: params.BookingID,
			Party:     party,
			PartyID:   partyID,
			Car:       params.Car,
			Type:      params.Type,
			Effect:    effect,
			Status:    status,
			Amount:    params.Amount,
			Note:      strings.TrimSpace(params.Note),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return Pair{
		Owner:  row(PartyOwner, params.OwnerID, ownerEffect),
		Renter: row(PartyRenter, params.RenterID, renterEffect),
	}, nil
}

func (t Type) Valid() bool {
	switch t {
	case TypeBooking, TypeRefund, TypeFee, TypeCancel, TypePayout, TypeWithdrawal:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusFailed, StatusRefunded, StatusDeclined:
		return true
	}
	return false
}

// Settled reports whether the row still counts toward balances.
func (s Status) Settled() bool {
	return s == StatusPaid
}

func (s Status) Void() bool {
	switch s {
	case StatusFailed, StatusRefunded, StatusDeclined:
		return true
	}
	return false
}

type Filter struct {
	BookingID string
	Party     Party
	PartyID   string
	Type      Type
	Status    Status
	Limit     int
	Offset    int
}

func (f Filter) Normalized() Filter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type Repository interface {
	// UpsertPair writes both rows atomically, keyed by (booking, party, type).
	UpsertPair(ctx context.Context, pair Pair) error
	// InsertPair appends both rows without a natural key; callers invoke it once per event.
	InsertPair(ctx context.Context, pair Pair) error
	// MarkBookingCancelled flips every row of the booking to type=cancel, status=refunded.
	MarkBookingCancelled(ctx context.Context, bookingID string, now time.Time) (int64, error)
	UpdatePairStatus(ctx context.Context, bookingID string, typ Type, status Status, now time.Time) (int64, error)
	ByBooking(ctx context.Context, bookingID string) ([]Transaction, error)
	// ListByParty returns every row of one party, newest first, for summaries.
	ListByParty(ctx context.Context, party Party, partyID string) ([]Transaction, error)
	List(ctx context.Context, filter Filter) ([]Transaction, int, error)
}

// FindPair returns the owner and renter rows of the given type for a booking.
func FindPair(rows []Transaction, typ Type) (Pair, bool) {
	var pair Pair
	var haveOwner, haveRenter bool
	for _, row := range rows {
		if row.Type != typ {
			continue
		}
		switch row.Party {
		case PartyOwner:
			pair.Owner, haveOwner = row, true
		case PartyRenter:
			pair.Renter, haveRenter = row, true
		}
	}
	return pair, haveOwner && haveRenter
}
