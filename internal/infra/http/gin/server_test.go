package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	bookingapp "rentcar/internal/app/handlers/bookings"
	ledgerapp "rentcar/internal/app/handlers/ledger"
	"rentcar/internal/app/queries"
	authsvc "rentcar/internal/app/services/auth"
	"rentcar/internal/app/validation"
	domainbooking "rentcar/internal/domain/booking"
	domainuser "rentcar/internal/domain/user"
	"rentcar/internal/infra/config"
	"rentcar/internal/infra/obs"
)

type commandBusFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandBusFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryBusFunc func(ctx context.Context, q queries.Query) (any, error)

func (f queryBusFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

type staticResolver map[string]*domainuser.User

func (r staticResolver) ResolveToken(_ context.Context, token string) (*domainuser.User, error) {
	if u, ok := r[token]; ok {
		return u, nil
	}
	return nil, authsvc.ErrInvalidToken
}

var renter = &domainuser.User{ID: "u-renter", Email: "r@example.com", Name: "Riya", Role: domainuser.RoleRenter, Verified: true}

func newTestRouter(cmds commands.Bus, qs queries.Bus) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := Handlers{
		Booking: BookingHandler{Commands: cmds, Queries: qs},
		Car:     CarHandler{Commands: cmds, Queries: qs},
		Ledger:  LedgerHandler{Queries: qs},
		Admin:   AdminHandler{Commands: cmds, Queries: qs},
		AuthMiddleware: AuthMiddleware{
			Service: staticResolver{"good-token": renter},
		}.Handle,
	}
	return NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, h)
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestQuoteSoftFailureIsOK(t *testing.T) {
	qs := queryBusFunc(func(ctx context.Context, q queries.Query) (any, error) {
		return bookingapp.QuoteResult{Available: false, Code: "PICKUP_TOO_SOON", Message: "Pickup time is too soon"}, nil
	})
	r := newTestRouter(nil, qs)

	rec, body := doJSON(t, r, http.MethodPost, "/api/v1/bookings/quote", "", gin.H{
		"carId":     "car-1",
		"pickupAt":  time.Now().Add(time.Hour),
		"dropoffAt": time.Now().Add(6 * time.Hour),
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["available"])
	assert.Equal(t, "PICKUP_TOO_SOON", body["code"])
}

func TestCreateBookingPassesActorAndIdempotencyKey(t *testing.T) {
	var got bookingapp.CreateBookingCommand
	cmds := commandBusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		got = cmd.(bookingapp.CreateBookingCommand)
		return &bookingapp.BookingResult{Message: "Booking confirmed", Booking: dto.BookingDTO{ID: "b-1"}}, nil
	})
	r := newTestRouter(cmds, nil)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(gin.H{"carId": "car-1", "paymentMethod": "UPI"}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")
	req.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "u-renter", got.Actor.UserID)
	assert.Equal(t, domainuser.RoleRenter, got.Actor.Role)
	assert.Equal(t, "abc", got.IdempotencyKeyV)
	assert.Equal(t, "upi", got.PaymentMethod)
	assert.Contains(t, rec.Body.String(), `"id":"b-1"`)
}

func TestInvalidTokenIsTreatedAsAnonymous(t *testing.T) {
	var got bookingapp.GetBookingQuery
	qs := queryBusFunc(func(ctx context.Context, q queries.Query) (any, error) {
		got = q.(bookingapp.GetBookingQuery)
		return dto.BookingDTO{}, nil
	})
	r := newTestRouter(nil, qs)

	rec, _ := doJSON(t, r, http.MethodGet, "/api/v1/bookings/b-1", "expired", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, got.Actor.Authenticated())
	assert.Equal(t, "b-1", got.BookingID)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"overlap", domainbooking.ErrOverlapping, http.StatusConflict, "OVERLAPPING_BOOKING"},
		{"wrapped not found", errors.Join(errors.New("load"), domainbooking.ErrBookingNotFound), http.StatusNotFound, "BOOKING_NOT_FOUND"},
		{"validation", &validation.Error{Fields: []validation.FieldError{{Field: "carId", Rule: "required", Message: "carId is required"}}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unexpected", errors.New("mongo: connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmds := commandBusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				return nil, tc.err
			})
			r := newTestRouter(cmds, nil)

			rec, body := doJSON(t, r, http.MethodPatch, "/api/v1/bookings/b-1/cancel", "good-token", nil)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, rec.Body.String(), "connection reset")
		})
	}
}

func TestCompleteAcceptsMultipartProofs(t *testing.T) {
	var got bookingapp.CompleteBookingCommand
	cmds := commandBusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		got = cmd.(bookingapp.CompleteBookingCommand)
		return &bookingapp.BookingResult{Message: "Booking completed"}, nil
	})
	r := newTestRouter(cmds, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("carInspected", "true"))
	require.NoError(t, w.WriteField("challanAmount", "500"))
	require.NoError(t, w.WriteField("notes", "scratch on bumper"))
	part, err := w.CreateFormFile("challanProofs", "challan.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/b-9/complete", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "b-9", got.BookingID)
	assert.True(t, got.CarInspected)
	assert.Equal(t, int64(500), got.ChallanAmount)
	assert.Equal(t, "scratch on bumper", got.Notes)
	require.Len(t, got.ChallanProofs, 1)
	assert.Equal(t, "image/png", got.ChallanProofs[0].ContentType)
	assert.Empty(t, got.TollProofs)
}

func TestCompleteRejectsUnsupportedProofType(t *testing.T) {
	called := false
	cmds := commandBusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		called = true
		return &bookingapp.BookingResult{}, nil
	})
	r := newTestRouter(cmds, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("tollProofs", "toll.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("plain text receipt"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/b-9/complete", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
	assert.True(t, strings.Contains(rec.Body.String(), "unsupported file type"))
}

func TestSummaryDefaultsViewByRole(t *testing.T) {
	var views []string
	qs := queryBusFunc(func(ctx context.Context, q queries.Query) (any, error) {
		views = append(views, q.(ledgerapp.SummaryQuery).View)
		return ledgerapp.SummaryResult{}, nil
	})
	r := newTestRouter(nil, qs)

	rec, _ := doJSON(t, r, http.MethodGet, "/api/v1/transactions/summary", "good-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doJSON(t, r, http.MethodGet, "/api/v1/transactions/summary?view=owner", "good-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"renter", "owner"}, views)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metricsHit := false
	r := NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			metricsHit = true
			w.WriteHeader(http.StatusOK)
		}),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, metricsHit)
}
