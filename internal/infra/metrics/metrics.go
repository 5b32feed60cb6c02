package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentcar/internal/app/errcode"
	"rentcar/internal/app/middleware"
	"rentcar/internal/app/policies"
)

const namespace = "rentcar"

// Registry owns every collector of the service. Each instance has its own prometheus
// registry so tests never collide on global registration.
type Registry struct {
	reg *prometheus.Registry

	messages       *prometheus.CounterVec
	messageSeconds *prometheus.HistogramVec
	ledgerFailures *prometheus.CounterVec
	ledgerRepaired prometheus.Counter
	httpSeconds    *prometheus.HistogramVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Commands and queries dispatched, by outcome code.",
		}, []string{"kind", "key", "outcome"}),
		messageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "Time spent handling commands and queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "key"}),
		ledgerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_write_failures_total",
			Help:      "Best-effort ledger writes that failed and await reconciliation.",
		}, []string{"type"}),
		ledgerRepaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_pairs_repaired_total",
			Help:      "Booking pairs written or fixed by the reconcile job.",
		}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.messages,
		r.messageSeconds,
		r.ledgerFailures,
		r.ledgerRepaired,
		r.httpSeconds,
	)
	return r
}

// Observe implements middleware.Observer.
func (r *Registry) Observe(kind, key string, elapsed time.Duration, err error) {
	outcome := "OK"
	if err != nil {
		outcome = string(errcode.Of(err))
	}
	r.messages.WithLabelValues(kind, key, outcome).Inc()
	r.messageSeconds.WithLabelValues(kind, key).Observe(elapsed.Seconds())
}

func (r *Registry) LedgerWriteFailed(kind string) {
	r.ledgerFailures.WithLabelValues(kind).Inc()
}

func (r *Registry) LedgerRepaired(count int) {
	r.ledgerRepaired.Add(float64(count))
}

// GinMiddleware records latency per route template, not per raw path.
func (r *Registry) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpSeconds.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

var (
	_ middleware.Observer    = (*Registry)(nil)
	_ policies.LedgerMetrics = (*Registry)(nil)
)
