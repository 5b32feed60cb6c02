package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentcar/internal/infra/config"
	"rentcar/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Booking        BookingHandler
	Car            CarHTTP
	Ledger         LedgerHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
	// Metrics wraps every route; MetricsHandler serves /metrics when set.
	Metrics        gin.HandlerFunc
	MetricsHandler http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without binding it to an address.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	if h.Metrics != nil {
		router.Use(h.Metrics)
	}
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(h.MetricsHandler))
	}

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
	}

	bookings := api.Group("/bookings")
	bookings.GET("/cities", h.Booking.Cities)
	bookings.POST("/quote", h.Booking.Quote)
	bookings.POST("", h.Booking.Create)
	bookings.GET("", h.Booking.List)
	bookings.GET("/:id", h.Booking.Get)
	bookings.PATCH("/:id/cancel", h.Booking.Cancel)
	bookings.PATCH("/:id/complete", h.Booking.Complete)
	bookings.PATCH("/:id/payment", h.Booking.MarkPaid)

	if h.Ledger != nil {
		api.GET("/transactions", h.Ledger.List)
		api.GET("/transactions/summary", h.Ledger.Summary)
	}

	if h.Car != nil {
		cars := api.Group("/cars")
		cars.POST("", h.Car.Create)
		cars.GET("/mine", h.Car.Mine)
		cars.GET("/:id", h.Car.Get)
		cars.PATCH("/:id", h.Car.Update)
		cars.PATCH("/:id/availability", h.Car.SetAvailability)
		cars.POST("/:id/photos", h.Car.UploadPhoto)
		cars.DELETE("/:id", h.Car.Delete)
	}

	admin := api.Group("/admin")
	admin.GET("/bookings", h.Booking.AdminList)
	if h.Admin != nil {
		admin.PATCH("/bookings/:id/approval", h.Admin.SetApproval)
		admin.POST("/bookings/:id/refund", h.Admin.Refund)
		admin.GET("/users", h.Admin.Users)
		admin.PATCH("/users/:id/verify", h.Admin.VerifyUser)
		admin.PATCH("/users/:id/block", h.Admin.BlockUser)
		admin.POST("/ledger/reconcile", h.Admin.Reconcile)
	}
	if h.Ledger != nil {
		admin.GET("/transactions", h.Ledger.AdminList)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
