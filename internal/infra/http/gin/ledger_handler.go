package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/dto"
	ledgerapp "rentcar/internal/app/handlers/ledger"
	"rentcar/internal/app/queries"
	domainuser "rentcar/internal/domain/user"
)

type LedgerHTTP interface {
	List(c *gin.Context)
	Summary(c *gin.Context)
	AdminList(c *gin.Context)
}

type LedgerHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h LedgerHandler) List(c *gin.Context) {
	h.list(c, false)
}

func (h LedgerHandler) AdminList(c *gin.Context) {
	h.list(c, true)
}

func (h LedgerHandler) list(c *gin.Context, all bool) {
	limit, offset := pageParams(c, 50)
	result, err := queries.Ask[ledgerapp.ListTransactionsQuery, dto.TransactionCollection](c.Request.Context(), h.Queries, ledgerapp.ListTransactionsQuery{
		Actor:      actorFrom(c),
		AllParties: all,
		BookingID:  strings.TrimSpace(c.Query("bookingId")),
		Party:      strings.TrimSpace(c.Query("party")),
		Type:       strings.TrimSpace(c.Query("type")),
		Status:     strings.TrimSpace(c.Query("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"transactions": result.Items, "page": result.Page})
}

// Summary defaults to the owner view for car owners and the renter view for everyone else.
func (h LedgerHandler) Summary(c *gin.Context) {
	actor := actorFrom(c)
	view := strings.ToLower(strings.TrimSpace(c.Query("view")))
	if view == "" {
		view = "renter"
		if actor.Is(domainuser.RoleOwner, domainuser.RoleFleet) {
			view = "owner"
		}
	}
	result, err := queries.Ask[ledgerapp.SummaryQuery, ledgerapp.SummaryResult](c.Request.Context(), h.Queries, ledgerapp.SummaryQuery{
		Actor: actor,
		View:  view,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	payload := gin.H{"view": result.View}
	if result.Owner != nil {
		payload["summary"] = result.Owner
	} else {
		payload["summary"] = result.Renter
	}
	respond(c, http.StatusOK, "", payload)
}

var _ LedgerHTTP = LedgerHandler{}
