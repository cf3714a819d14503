package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	AccessDecisionsTotal       *prometheus.CounterVec
	InvitationTransitionsTotal *prometheus.CounterVec
	CategoryCleanupsTotal      prometheus.Counter
	RecipeFavoritesTotal       *prometheus.CounterVec
	WebsocketClients           prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refrigerator_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refrigerator_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refrigerator_access_decisions_total",
				Help: "Access evaluations by requested operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		InvitationTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refrigerator_invitation_transitions_total",
				Help: "Invitation lifecycle transitions by resulting status",
			},
			[]string{"status"},
		),
		CategoryCleanupsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "refrigerator_category_cleanups_total",
				Help: "Custom categories deleted after their last link was removed",
			},
		),
		RecipeFavoritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refrigerator_recipe_favorites_total",
				Help: "Recipe favorite changes by action",
			},
			[]string{"action"},
		),
		WebsocketClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "refrigerator_websocket_clients",
				Help: "Connected websocket clients",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessDecisionsTotal,
		m.InvitationTransitionsTotal,
		m.CategoryCleanupsTotal,
		m.RecipeFavoritesTotal,
		m.WebsocketClients,
	)

	return m
}

// New returns metrics registered on a private registry, for tests and for
// callers that do not expose them.
func New() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
