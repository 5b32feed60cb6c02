package ledger

import (
	"context"
	"log/slog"
	"time"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/policies"
	"rentcar/internal/app/uow"
	domainbooking "rentcar/internal/domain/booking"
	domainledger "rentcar/internal/domain/ledger"
	domainuser "rentcar/internal/domain/user"
)

const (
	reconcileKey         = "ledger.reconcile"
	defaultReconcileSize = 500
)

// ReconcileCommand asks for the booking pairs of settled bookings to be checked and repaired.
// The scheduler dispatches it as SystemActor with System set; admins may trigger it manually.
type ReconcileCommand struct {
	Actor  access.Actor `json:"-"`
	System bool         `json:"-"`
	Limit  int          `json:"limit" validate:"gte=0,lte=5000"`
}

func (c ReconcileCommand) Key() string             { return reconcileKey }
func (c ReconcileCommand) Principal() access.Actor { return c.Actor }
func (c ReconcileCommand) ManagesUnits() bool      { return true }
func (c ReconcileCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleAdmin}
}

// SystemActor is the principal used for scheduled jobs.
var SystemActor = access.Actor{UserID: "system", Role: domainuser.RoleAdmin}

type ReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// ReconcileHandler runs outside the Transaction middleware: each booking is repaired in its
// own unit so one bad record does not block the rest. Limit is the page size; one run walks
// every page so bookings created after the oldest Limit are reached too.
type ReconcileHandler struct {
	UoWFactory uow.UoWFactory
	Locker     middleware.KeyedLocker
	Clock      func() time.Time
	Metrics    policies.LedgerMetrics
	Logger     *slog.Logger
}

func (h *ReconcileHandler) Handle(ctx context.Context, cmd ReconcileCommand) (*ReconcileReport, error) {
	if h.UoWFactory == nil {
		return nil, uow.ErrUnitOfWorkMissing
	}
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultReconcileSize
	}
	report := &ReconcileReport{}
	var after domainbooking.Cursor
	for {
		page, err := h.candidates(ctx, after, limit)
		if err != nil {
			return report, err
		}
		for _, b := range page {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			h.check(ctx, b, report)
		}
		if len(page) < limit {
			break
		}
		after = domainbooking.CursorOf(page[len(page)-1])
	}
	if h.Metrics != nil && report.Repaired > 0 {
		h.Metrics.LedgerRepaired(report.Repaired)
	}
	if h.Logger != nil {
		h.Logger.Info("ledger reconcile finished", "checked", report.Checked, "repaired", report.Repaired, "failed", report.Failed, "system", cmd.System)
	}
	return report, nil
}

func (h *ReconcileHandler) check(ctx context.Context, b *domainbooking.Booking, report *ReconcileReport) {
	report.Checked++
	repaired, err := h.reconcileOne(ctx, b.ID)
	if err != nil {
		report.Failed++
		if h.Logger != nil {
			h.Logger.Warn("ledger reconcile failed", "booking_id", b.ID, "error", err)
		}
		return
	}
	if repaired {
		report.Repaired++
		if h.Logger != nil {
			h.Logger.Info("ledger pair repaired", "booking_id", b.ID, "amount", b.TotalAmount.Amount)
		}
	}
}

func (h *ReconcileHandler) candidates(ctx context.Context, after domainbooking.Cursor, limit int) ([]*domainbooking.Booking, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return unit.Bookings().ListForReconciliation(execCtx, reconcilable, after, limit)
}

var reconcilable = []domainbooking.Status{domainbooking.StatusConfirmed, domainbooking.StatusCompleted}

// reconcileOne re-reads the booking under its lock and inside the repair unit, so a booking
// cancelled after it was listed is left alone.
func (h *ReconcileHandler) reconcileOne(ctx context.Context, id domainbooking.BookingID) (bool, error) {
	if h.Locker != nil {
		unlock, err := h.Locker.Lock(ctx, handlersupport.BookingLockKey(string(id)))
		if err != nil {
			return false, err
		}
		defer unlock()
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	b, err := unit.Bookings().ByID(execCtx, id)
	if err != nil {
		return false, err
	}
	if b.Status != domainbooking.StatusConfirmed && b.Status != domainbooking.StatusCompleted {
		return false, nil
	}
	rows, err := unit.Ledger().ByBooking(execCtx, string(b.ID))
	if err != nil {
		return false, err
	}
	pair, found := domainledger.FindPair(rows, domainledger.TypeBooking)
	if found && pair.Balanced() && pair.Owner.Amount == b.TotalAmount {
		return false, nil
	}
	status := BookingPairStatus(b)
	if found && pair.Owner.Status == domainledger.StatusPaid {
		status = domainledger.StatusPaid
	}
	repair, err := PairFor(b, domainledger.TypeBooking, status, b.TotalAmount.Amount, "", handlersupport.Now(h.Clock))
	if err != nil {
		return false, err
	}
	if err := unit.Ledger().UpsertPair(execCtx, repair); err != nil {
		return false, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

var _ commands.Handler[ReconcileCommand, *ReconcileReport] = (*ReconcileHandler)(nil)
