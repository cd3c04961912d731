package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics interface defines monitoring operations
type Metrics interface {
	IncrementCounter(name string, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	RecordDuration(name string, start time.Time, labels map[string]string)
}

// PrometheusMetrics implements Metrics using Prometheus
type PrometheusMetrics struct {
	registry *prometheus.Registry
	counters map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges   map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	
	pm := &PrometheusMetrics{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	// Register default metrics
	pm.registerDefaultMetrics()

	return pm
}

// registerDefaultMetrics registers common application metrics
func (pm *PrometheusMetrics) registerDefaultMetrics() {
	// HTTP request metrics
	pm.counters["http_requests_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	pm.histograms["http_request_duration_seconds"] = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Database metrics
	pm.counters["database_queries_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	pm.histograms["database_query_duration_seconds"] = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Cache metrics
	pm.counters["cache_operations_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)

	// Business metrics
	pm.counters["orders_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Total number of orders",
		},
		[]string{"status", "payment_method"},
	)

	pm.gauges["active_orders"] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_orders",
			Help: "Number of active orders",
		},
		[]string{"status"},
	)

	pm.histograms["order_value_dollars"] = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_value_dollars",
			Help:    "Order value in dollars",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200},
		},
		[]string{"payment_method"},
	)

	// Recipe Inventory Deductor (C1) metrics
	pm.counters["deductions_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deductions_total",
			Help: "Total number of inventory deduction passes",
		},
		[]string{"result"}, // ok, partial, insufficient_stock
	)

	pm.counters["deduction_items_without_recipe_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deduction_items_without_recipe_total",
			Help: "Total number of order line items deducted with no recipe on file",
		},
		[]string{"restaurant_id"},
	)

	// Pricing Rule Engine (C2) metrics
	pm.counters["pricing_rules_applied_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_rules_applied_total",
			Help: "Total number of pricing rules applied to an order",
		},
		[]string{"conflict_strategy"},
	)

	pm.histograms["pricing_discount_dollars"] = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_discount_dollars",
			Help:    "Discount amount applied per order in dollars",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
		},
		[]string{"conflict_strategy"},
	)

	// Queue Sequencer & Rebalancer (C4) metrics
	pm.counters["queue_rebalances_total"] = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_rebalances_total",
			Help: "Total number of queue rebalance passes",
		},
		[]string{"result"}, // ok, failed
	)

	pm.histograms["queue_rebalance_duration_seconds"] = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_rebalance_duration_seconds",
			Help:    "Duration of a single queue rebalance pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// Register all metrics
	for _, counter := range pm.counters {
		pm.registry.MustRegister(counter)
	}
	for _, histogram := range pm.histograms {
		pm.registry.MustRegister(histogram)
	}
	for _, gauge := range pm.gauges {
		pm.registry.MustRegister(gauge)
	}
}

// IncrementCounter increments a counter metric
func (pm *PrometheusMetrics) IncrementCounter(name string, labels map[string]string) {
	if counter, exists := pm.counters[name]; exists {
		counter.With(labels).Inc()
	}
}

// RecordHistogram records a value in a histogram metric
func (pm *PrometheusMetrics) RecordHistogram(name string, value float64, labels map[string]string) {
	if histogram, exists := pm.histograms[name]; exists {
		histogram.With(labels).Observe(value)
	}
}

// SetGauge sets a gauge metric value
func (pm *PrometheusMetrics) SetGauge(name string, value float64, labels map[string]string) {
	if gauge, exists := pm.gauges[name]; exists {
		gauge.With(labels).Set(value)
	}
}

// RecordDuration records the duration since start time
func (pm *PrometheusMetrics) RecordDuration(name string, start time.Time, labels map[string]string) {
	duration := time.Since(start).Seconds()
	pm.RecordHistogram(name, duration, labels)
}

// Handler returns the Prometheus metrics HTTP handler
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// MetricsMiddleware provides HTTP metrics middleware
func (pm *PrometheusMetrics) MetricsMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

			next.ServeHTTP(wrapped, r)

			// Record metrics
			labels := map[string]string{
				"method":      r.Method,
				"endpoint":    r.URL.Path,
				"status_code": fmt.Sprintf("%d", wrapped.statusCode),
				"service":     serviceName,
			}

			pm.IncrementCounter("http_requests_total", labels)
			pm.RecordDuration("http_request_duration_seconds", start, map[string]string{
				"method":   r.Method,
				"endpoint": r.URL.Path,
				"service":  serviceName,
			})
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// BusinessMetrics provides business-specific metrics
type BusinessMetrics struct {
	metrics Metrics
}

// NewBusinessMetrics creates a new business metrics instance
func NewBusinessMetrics(metrics Metrics) *BusinessMetrics {
	return &BusinessMetrics{metrics: metrics}
}

// RecordOrder records order metrics
func (bm *BusinessMetrics) RecordOrder(status, paymentMethod string, value float64) {
	bm.metrics.IncrementCounter("orders_total", map[string]string{
		"status":         status,
		"payment_method": paymentMethod,
	})

	bm.metrics.RecordHistogram("order_value_dollars", value, map[string]string{
		"payment_method": paymentMethod,
	})
}

// UpdateActiveOrders updates active orders gauge
func (bm *BusinessMetrics) UpdateActiveOrders(status string, count float64) {
	bm.metrics.SetGauge("active_orders", count, map[string]string{
		"status": status,
	})
}

// RecordDeduction records the outcome of a Recipe Inventory Deductor (C1)
// pass and, when the order carried line items with no recipe on file, the
// count of such items.
func (bm *BusinessMetrics) RecordDeduction(result, restaurantID string, itemsWithoutRecipe int) {
	bm.metrics.IncrementCounter("deductions_total", map[string]string{
		"result": result,
	})
	if itemsWithoutRecipe > 0 {
		for i := 0; i < itemsWithoutRecipe; i++ {
			bm.metrics.IncrementCounter("deduction_items_without_recipe_total", map[string]string{
				"restaurant_id": restaurantID,
			})
		}
	}
}

// RecordPricingApplication records a resolved set of pricing rules applied
// to an order by the Pricing Rule Engine (C2).
func (bm *BusinessMetrics) RecordPricingApplication(conflictStrategy string, appliedRuleCount int, discount float64) {
	for i := 0; i < appliedRuleCount; i++ {
		bm.metrics.IncrementCounter("pricing_rules_applied_total", map[string]string{
			"conflict_strategy": conflictStrategy,
		})
	}
	bm.metrics.RecordHistogram("pricing_discount_dollars", discount, map[string]string{
		"conflict_strategy": conflictStrategy,
	})
}

// RecordRebalance records the outcome and duration of a Queue Sequencer &
// Rebalancer (C4) pass.
func (bm *BusinessMetrics) RecordRebalance(result string, start time.Time) {
	bm.metrics.IncrementCounter("queue_rebalances_total", map[string]string{
		"result": result,
	})
	bm.metrics.RecordDuration("queue_rebalance_duration_seconds", start, map[string]string{
		"result": result,
	})
}

// HealthChecker provides health checking functionality
type HealthChecker struct {
	checks map[string]HealthCheck
}

// HealthCheck represents a health check function
type HealthCheck func(ctx context.Context) error

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // healthy, unhealthy
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// OverallHealth represents the overall health of the system
type OverallHealth struct {
	Status string          `json:"status"`
	Checks []HealthStatus  `json:"checks"`
	Uptime string          `json:"uptime"`
}

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck adds a health check
func (hc *HealthChecker) AddCheck(name string, check HealthCheck) {
	hc.checks[name] = check
}

// CheckHealth performs all health checks
func (hc *HealthChecker) CheckHealth(ctx context.Context) *OverallHealth {
	var checks []HealthStatus
	overallHealthy := true

	for name, check := range hc.checks {
		start := time.Now()
		err := check(ctx)
		latency := time.Since(start)

		status := HealthStatus{
			Name:    name,
			Latency: latency.String(),
		}

		if err != nil {
			status.Status = "unhealthy"
			status.Message = err.Error()
			overallHealthy = false
		} else {
			status.Status = "healthy"
		}

		checks = append(checks, status)
	}

	overallStatus := "healthy"
	if !overallHealthy {
		overallStatus = "unhealthy"
	}

	return &OverallHealth{
		Status: overallStatus,
		Checks: checks,
		Uptime: "running", // Would calculate actual uptime
	}
}

// Handler returns the health check HTTP handler
func (hc *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		health := hc.CheckHealth(ctx)

		w.Header().Set("Content-Type", "application/json")
		
		if health.Status == "healthy" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		// Would use json.NewEncoder(w).Encode(health) in real implementation
		fmt.Fprintf(w, `{"status":"%s","checks_count":%d}`, health.Status, len(health.Checks))
	}
}
