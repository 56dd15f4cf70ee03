package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counter
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // operation can be "create", "access", "delete", "switch", etc.
	)

	// Authorization decision counter
	AuthzDecisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_authz_decisions_total",
			Help: "Total number of authorization decisions by outcome",
		},
		[]string{"action", "outcome"}, // outcome is "allowed" or "denied"
	)

	// Enrichment stage counter
	EnrichmentStageCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_enrichment_stages_total",
			Help: "Total number of enrichment pipeline outcomes by stage",
		},
		[]string{"stage", "outcome"}, // stage: "url", "logo", "scrape", "cleanup"; outcome: "ok" or "failed"
	)

	// CRUD operation counter
	EntityOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_entity_operations_total",
			Help: "Total number of entity CRUD operations",
		},
		[]string{"entity", "operation"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "login_failure", "invalid_token", "db_error" etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)

	// Enrichment pipeline duration
	EnrichmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_enrichment_duration_seconds",
			Help:    "Duration of the full resource enrichment pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dashboard_info",
			Help: "Information about the dashboard service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(AuthzDecisionCounter)
	prometheus.MustRegister(EnrichmentStageCounter)
	prometheus.MustRegister(EntityOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(EnrichmentDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordTenantOperation records a tenant operation
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordAuthzDecision records an authorization decision outcome
func RecordAuthzDecision(action string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	AuthzDecisionCounter.With(prometheus.Labels{"action": action, "outcome": outcome}).Inc()
}

// RecordEnrichmentStage records an enrichment pipeline stage outcome
func RecordEnrichmentStage(stage string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	EnrichmentStageCounter.With(prometheus.Labels{"stage": stage, "outcome": outcome}).Inc()
}

// RecordEntityOperation records a CRUD operation on an entity
func RecordEntityOperation(entity, operation string) {
	EntityOperationCounter.With(prometheus.Labels{"entity": entity, "operation": operation}).Inc()
}
