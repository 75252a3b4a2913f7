package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartbite",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smartbite",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	ordersPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smartbite",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders whose checkout fan-out completed.",
		},
	)

	orderRevenue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smartbite",
			Subsystem: "orders",
			Name:      "revenue_minor_units_total",
			Help:      "Sum of order totals, tax included, in minor currency units.",
		},
	)

	checkoutFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartbite",
			Subsystem: "orders",
			Name:      "checkout_failures_total",
			Help:      "Checkouts that stopped part way, by the step that failed.",
		},
		[]string{"step"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartbite",
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Order status changes made by the café.",
		},
		[]string{"status"},
	)

	notificationsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartbite",
			Subsystem: "notifications",
			Name:      "written_total",
			Help:      "Notification records written, by type.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		ordersPlaced,
		orderRevenue,
		checkoutFailures,
		statusChanges,
		notificationsWritten,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordOrderPlaced counts a completed checkout.
func RecordOrderPlaced(total int) {
	ordersPlaced.Inc()
	orderRevenue.Add(float64(total))
}

// RecordCheckoutFailure counts a checkout that stopped at step.
func RecordCheckoutFailure(step string) {
	checkoutFailures.WithLabelValues(step).Inc()
}

// RecordStatusChange counts an order moving to status.
func RecordStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

// RecordNotification counts a notification record written.
func RecordNotification(kind string) {
	notificationsWritten.WithLabelValues(kind).Inc()
}
