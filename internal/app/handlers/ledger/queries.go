package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcar/internal/app/access"
	"rentcar/internal/app/dto"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/queries"
	"rentcar/internal/app/uow"
	domainledger "rentcar/internal/domain/ledger"
	domainuser "rentcar/internal/domain/user"
)

const (
	listTransactionsKey = "ledger.list"
	summaryKey          = "ledger.summary"
)

// ListTransactionsQuery lists the caller's own postings. AllParties widens the listing to
// every posting and is only honoured for admins.
type ListTransactionsQuery struct {
	Actor      access.Actor `json:"-"`
	AllParties bool         `json:"-"`
	BookingID  string       `json:"bookingId"`
	Party      string       `json:"party" validate:"omitempty,oneof=owner renter"`
	Type       string       `json:"type" validate:"omitempty,oneof=booking refund fee cancel payout withdrawal"`
	Status     string       `json:"status" validate:"omitempty,oneof=pending paid processing failed refunded declined"`
	Limit      int          `json:"limit" validate:"gte=0,lte=200"`
	Offset     int          `json:"offset" validate:"gte=0"`
}

func (q ListTransactionsQuery) Key() string             { return listTransactionsKey }
func (q ListTransactionsQuery) Principal() access.Actor { return q.Actor }
func (q ListTransactionsQuery) AllowedRoles() []domainuser.Role {
	if q.AllParties {
		return []domainuser.Role{domainuser.RoleAdmin}
	}
	return nil
}

type ListTransactionsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListTransactionsHandler) Handle(ctx context.Context, q ListTransactionsQuery) (dto.TransactionCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.TransactionCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	filter := domainledger.Filter{
		BookingID: strings.TrimSpace(q.BookingID),
		Party:     domainledger.Party(q.Party),
		Type:      domainledger.Type(q.Type),
		Status:    domainledger.Status(q.Status),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if !q.AllParties {
		filter.PartyID = q.Actor.UserID
	}
	filter = filter.Normalized()
	rows, total, err := unit.Ledger().List(execCtx, filter)
	if err != nil {
		return dto.TransactionCollection{}, err
	}
	return dto.TransactionCollection{
		Items: dto.MapTransactions(rows),
		Page:  dto.Page{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	}, nil
}

type SummaryQuery struct {
	Actor access.Actor `json:"-"`
	View  string       `json:"view" validate:"required,oneof=owner renter"`
}

func (q SummaryQuery) Key() string                     { return summaryKey }
func (q SummaryQuery) Principal() access.Actor         { return q.Actor }
func (q SummaryQuery) AllowedRoles() []domainuser.Role { return nil }

// SummaryResult carries exactly one of the two views.
type SummaryResult struct {
	View   string                      `json:"view"`
	Owner  *domainledger.OwnerSummary  `json:"owner,omitempty"`
	Renter *domainledger.RenterSummary `json:"renter,omitempty"`
}

type SummaryHandler struct {
	UoWFactory uow.UoWFactory
	Clock      func() time.Time
	Logger     *slog.Logger
}

func (h *SummaryHandler) Handle(ctx context.Context, q SummaryQuery) (SummaryResult, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return SummaryResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	party := domainledger.Party(q.View)
	rows, err := unit.Ledger().ListByParty(execCtx, party, q.Actor.UserID)
	if err != nil {
		return SummaryResult{}, err
	}
	now := handlersupport.Now(h.Clock)
	out := SummaryResult{View: q.View}
	switch party {
	case domainledger.PartyOwner:
		s := domainledger.SummarizeOwner(rows, now)
		out.Owner = &s
	default:
		s := domainledger.SummarizeRenter(rows, now)
		out.Renter = &s
	}
	if h.Logger != nil {
		h.Logger.Debug("ledger summary computed", "user_id", q.Actor.UserID, "view", q.View, "rows", len(rows))
	}
	return out, nil
}

var _ queries.Handler[ListTransactionsQuery, dto.TransactionCollection] = (*ListTransactionsHandler)(nil)
var _ queries.Handler[SummaryQuery, SummaryResult] = (*SummaryHandler)(nil)
