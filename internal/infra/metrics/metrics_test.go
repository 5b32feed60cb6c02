package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "rentcar/internal/domain/booking"
)

func TestObserveLabelsOutcomeByCode(t *testing.T) {
	r := New()
	r.Observe("command", "bookings.create", 10*time.Millisecond, nil)
	r.Observe("command", "bookings.create", 10*time.Millisecond, domainbooking.ErrOverlapping)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.messages.WithLabelValues("command", "bookings.create", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.messages.WithLabelValues("command", "bookings.create", "OVERLAPPING_BOOKING")))
}

func TestLedgerCounters(t *testing.T) {
	r := New()
	r.LedgerWriteFailed("booking")
	r.LedgerRepaired(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.ledgerFailures.WithLabelValues("booking")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ledgerRepaired))
}

func TestHandlerExposesHTTPHistogram(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New()
	engine := gin.New()
	engine.Use(r.GinMiddleware())
	engine.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	engine.GET("/metrics", gin.WrapH(r.Handler()))

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping/7", nil))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rentcar_http_request_duration_seconds_count{method="GET",route="/ping/:id",status="204"} 1`)
}
