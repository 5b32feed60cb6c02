package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	bookingapp "rentcar/internal/app/handlers/bookings"
	carapp "rentcar/internal/app/handlers/cars"
	"rentcar/internal/app/queries"
)

type BookingHTTP interface {
	Cities(c *gin.Context)
	Quote(c *gin.Context)
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
	MarkPaid(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type bookingWindowRequest struct {
	CarID     string    `json:"carId"`
	PickupAt  time.Time `json:"pickupAt"`
	DropoffAt time.Time `json:"dropoffAt"`
}

type createBookingRequest struct {
	bookingWindowRequest
	PaymentMethod string `json:"paymentMethod"`
}

type completeBookingRequest struct {
	CarInspected  bool   `json:"carInspected"`
	Notes         string `json:"notes"`
	ChallanAmount int64  `json:"challanAmount"`
	TollAmount    int64  `json:"tollAmount"`
}

type markPaidRequest struct {
	Method string `json:"method"`
}

func (h BookingHandler) Cities(c *gin.Context) {
	result, err := queries.Ask[carapp.ListCitiesQuery, carapp.CitiesResult](c.Request.Context(), h.Queries, carapp.ListCitiesQuery{})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"cities": result.Cities})
}

// Quote answers business rule failures with 200 and available=false.
func (h BookingHandler) Quote(c *gin.Context) {
	var req bookingWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	result, err := queries.Ask[bookingapp.QuoteBookingQuery, bookingapp.QuoteResult](c.Request.Context(), h.Queries, bookingapp.QuoteBookingQuery{
		CarID:     req.CarID,
		PickupAt:  req.PickupAt,
		DropoffAt: req.DropoffAt,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	payload := gin.H{
		"available": result.Available,
		"pickupAt":  result.PickupAt,
		"dropoffAt": result.DropoffAt,
	}
	if result.Code != "" {
		payload["code"] = result.Code
	}
	if result.Car != nil {
		payload["car"] = result.Car
	}
	if result.Pricing != nil {
		payload["pricing"] = result.Pricing
	}
	respond(c, http.StatusOK, result.Message, payload)
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		Actor:           actorFrom(c),
		CarID:           req.CarID,
		PickupAt:        req.PickupAt,
		DropoffAt:       req.DropoffAt,
		PaymentMethod:   strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.BookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, result.Message, gin.H{"booking": result.Booking})
}

func (h BookingHandler) List(c *gin.Context) {
	limit, offset := pageParams(c, 20)
	q := bookingapp.ListBookingsQuery{
		Actor:    actorFrom(c),
		Scope:    strings.TrimSpace(c.DefaultQuery("scope", "me")),
		Status:   strings.TrimSpace(c.Query("status")),
		Approval: strings.TrimSpace(c.Query("approval")),
		CarID:    strings.TrimSpace(c.Query("carId")),
		Limit:    limit,
		Offset:   offset,
	}
	h.list(c, q)
}

// AdminList is the admin view of every booking.
func (h BookingHandler) AdminList(c *gin.Context) {
	limit, offset := pageParams(c, 50)
	h.list(c, bookingapp.ListBookingsQuery{
		Actor:    actorFrom(c),
		Scope:    "admin",
		Status:   strings.TrimSpace(c.Query("status")),
		Approval: strings.TrimSpace(c.Query("approval")),
		CarID:    strings.TrimSpace(c.Query("carId")),
		Limit:    limit,
		Offset:   offset,
	})
}

func (h BookingHandler) list(c *gin.Context, q bookingapp.ListBookingsQuery) {
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"bookings": result.Items, "page": result.Page})
}

func (h BookingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingDTO](c.Request.Context(), h.Queries, bookingapp.GetBookingQuery{
		Actor:     actorFrom(c),
		BookingID: c.Param("id"),
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"booking": result})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.BookingResult](c.Request.Context(), h.Commands, bookingapp.CancelBookingCommand{
		Actor:     actorFrom(c),
		BookingID: c.Param("id"),
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"booking": result.Booking})
}

// Complete accepts JSON, or multipart form fields with challanProofs and tollProofs files.
func (h BookingHandler) Complete(c *gin.Context) {
	cmd := bookingapp.CompleteBookingCommand{
		Actor:     actorFrom(c),
		BookingID: c.Param("id"),
	}
	if isMultipart(c) {
		var err error
		if cmd.CarInspected, err = formBool(c.PostForm("carInspected")); err != nil {
			badRequest(c, "carInspected must be a boolean")
			return
		}
		if cmd.ChallanAmount, err = formAmount(c.PostForm("challanAmount")); err != nil {
			badRequest(c, "challanAmount must be a whole number")
			return
		}
		if cmd.TollAmount, err = formAmount(c.PostForm("tollAmount")); err != nil {
			badRequest(c, "tollAmount must be a whole number")
			return
		}
		cmd.Notes = c.PostForm("notes")
		if cmd.ChallanProofs, err = readUploads(c, "challanProofs", true); err != nil {
			badRequest(c, err.Error())
			return
		}
		if cmd.TollProofs, err = readUploads(c, "tollProofs", true); err != nil {
			badRequest(c, err.Error())
			return
		}
	} else if c.Request.ContentLength != 0 {
		var req completeBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		cmd.CarInspected = req.CarInspected
		cmd.Notes = req.Notes
		cmd.ChallanAmount = req.ChallanAmount
		cmd.TollAmount = req.TollAmount
	}
	result, err := commands.Dispatch[bookingapp.CompleteBookingCommand, *bookingapp.BookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"booking": result.Booking})
}

func (h BookingHandler) MarkPaid(c *gin.Context) {
	var req markPaidRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	result, err := commands.Dispatch[bookingapp.MarkPaidCommand, *bookingapp.BookingResult](c.Request.Context(), h.Commands, bookingapp.MarkPaidCommand{
		Actor:     actorFrom(c),
		BookingID: c.Param("id"),
		Method:    strings.ToLower(strings.TrimSpace(req.Method)),
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"booking": result.Booking})
}

func formBool(raw string) (bool, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func formAmount(raw string) (int64, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

var _ BookingHTTP = BookingHandler{}
