package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	adminapp "rentcar/internal/app/handlers/admin"
	ledgerapp "rentcar/internal/app/handlers/ledger"
	"rentcar/internal/app/queries"
)

type AdminHTTP interface {
	SetApproval(c *gin.Context)
	Refund(c *gin.Context)
	Users(c *gin.Context)
	VerifyUser(c *gin.Context)
	BlockUser(c *gin.Context)
	Reconcile(c *gin.Context)
}

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h AdminHandler) SetApproval(c *gin.Context) {
	var cmd adminapp.SetApprovalCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cmd.Actor = actorFrom(c)
	cmd.BookingID = c.Param("id")
	cmd.Approval = strings.ToLower(strings.TrimSpace(cmd.Approval))
	result, err := commands.Dispatch[adminapp.SetApprovalCommand, *adminapp.BookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"booking": result.Booking})
}

func (h AdminHandler) Refund(c *gin.Context) {
	var cmd adminapp.RefundBookingCommand
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	cmd.Actor = actorFrom(c)
	cmd.BookingID = c.Param("id")
	result, err := commands.Dispatch[adminapp.RefundBookingCommand, *adminapp.RefundResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, result.Message, gin.H{
		"refunded":     result.Refunded,
		"remaining":    result.Remaining,
		"transactions": result.Transactions,
	})
}

func (h AdminHandler) Users(c *gin.Context) {
	limit, offset := pageParams(c, 50)
	result, err := queries.Ask[adminapp.ListUsersQuery, dto.UserCollection](c.Request.Context(), h.Queries, adminapp.ListUsersQuery{
		Actor:    actorFrom(c),
		Query:    c.Query("q"),
		Role:     strings.ToLower(strings.TrimSpace(c.Query("role"))),
		Verified: parseOptionalBool(c.Query("verified")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"users": result.Items, "page": result.Page})
}

func (h AdminHandler) VerifyUser(c *gin.Context) {
	var cmd adminapp.VerifyUserCommand
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	cmd.Actor = actorFrom(c)
	cmd.UserID = c.Param("id")
	result, err := commands.Dispatch[adminapp.VerifyUserCommand, *adminapp.UserResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"user": result.User})
}

func (h AdminHandler) BlockUser(c *gin.Context) {
	cmd := adminapp.BlockUserCommand{Blocked: true}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	cmd.Actor = actorFrom(c)
	cmd.UserID = c.Param("id")
	result, err := commands.Dispatch[adminapp.BlockUserCommand, *adminapp.UserResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"user": result.User})
}

// Reconcile runs the ledger repair job on demand.
func (h AdminHandler) Reconcile(c *gin.Context) {
	cmd := ledgerapp.ReconcileCommand{Actor: actorFrom(c)}
	cmd.Limit = parseIntWithDefault(c.Query("limit"), 0)
	result, err := commands.Dispatch[ledgerapp.ReconcileCommand, *ledgerapp.ReconcileReport](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "Reconciliation finished", gin.H{"report": result})
}

var _ AdminHTTP = AdminHandler{}
