package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	ledgerhandlers "rentcar/internal/app/handlers/ledger"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/outbox"
	"rentcar/internal/app/policies"
	domainbooking "rentcar/internal/domain/booking"
	domainuser "rentcar/internal/domain/user"
)

const completeBookingKey = "bookings.complete"

type CompleteBookingCommand struct {
	Actor         access.Actor      `json:"-"`
	BookingID     string            `json:"bookingId" validate:"required"`
	CarInspected  bool              `json:"carInspected"`
	Notes         string            `json:"notes" validate:"max=2000"`
	ChallanAmount int64             `json:"challanAmount"`
	TollAmount    int64             `json:"tollAmount"`
	ChallanProofs []policies.Upload `json:"-" validate:"max=10"`
	TollProofs    []policies.Upload `json:"-" validate:"max=10"`
}

func (c CompleteBookingCommand) Key() string             { return completeBookingKey }
func (c CompleteBookingCommand) Principal() access.Actor { return c.Actor }
func (c CompleteBookingCommand) LockKey() string         { return handlersupport.BookingLockKey(c.BookingID) }
func (c CompleteBookingCommand) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleOwner, domainuser.RoleFleet, domainuser.RoleAdmin}
}

type CompleteBookingHandler struct {
	Blobs   policies.BlobStorage
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Rules   domainbooking.Rules
	Clock   func() time.Time
	Logger  *slog.Logger
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (result *BookingResult, err error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := loadForOwner(ctx, unit, cmd.BookingID, cmd.Actor)
	if err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Clock)
	changed, err := booking.Complete(domainbooking.CompleteParams{
		ActorID:       cmd.Actor.UserID,
		CarInspected:  cmd.CarInspected,
		Notes:         cmd.Notes,
		ChallanAmount: cmd.ChallanAmount,
		TollAmount:    cmd.TollAmount,
	}, h.Rules, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &BookingResult{Message: "Already completed", Booking: dto.MapBooking(booking)}, nil
	}

	// Proofs are uploaded only once the transition is known to succeed.
	var uploaded []string
	defer func() {
		if err != nil {
			h.discard(ctx, uploaded)
		}
	}()
	challan, err := h.store(ctx, booking.ID, "challan", cmd.ChallanProofs)
	uploaded = append(uploaded, challan...)
	if err != nil {
		return nil, err
	}
	toll, err := h.store(ctx, booking.ID, "toll", cmd.TollProofs)
	uploaded = append(uploaded, toll...)
	if err != nil {
		return nil, err
	}
	booking.Completion.ChallanProofs = challan
	booking.Completion.TollProofs = toll

	if err = unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	fees, err := ledgerhandlers.PostFees(ctx, unit.Ledger(), booking, now)
	if err != nil {
		return nil, err
	}
	if err = outbox.Record(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking completed",
			"booking_id", booking.ID,
			"actor_id", cmd.Actor.UserID,
			"fee_pairs", fees,
			"proofs", len(uploaded),
		)
	}
	return &BookingResult{Message: "Booking completed", Changed: true, Booking: dto.MapBooking(booking)}, nil
}

func (h *CompleteBookingHandler) store(ctx context.Context, id domainbooking.BookingID, kind string, files []policies.Upload) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if h.Blobs == nil {
		return nil, fmt.Errorf("%s proofs: %w", kind, policies.ErrBlobStorageUnavailable)
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		key := fmt.Sprintf("bookings/%s/%s/%s%s", id, kind, uuid.NewString(), strings.ToLower(path.Ext(f.Filename)))
		url, err := h.Blobs.Upload(ctx, key, f.Body, f.Size, f.ContentType)
		if err != nil {
			return urls, fmt.Errorf("upload %s proof: %w", kind, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (h *CompleteBookingHandler) discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := h.Blobs.Delete(ctx, url); err != nil && h.Logger != nil {
			h.Logger.Warn("orphaned proof not deleted", "url", url, "error", err)
		}
	}
}

var _ commands.Handler[CompleteBookingCommand, *BookingResult] = (*CompleteBookingHandler)(nil)
var _ middleware.SerializedCommand = CompleteBookingCommand{}
