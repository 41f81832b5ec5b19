// Package metrics holds the Prometheus collectors for imports,
// reconciliations and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	Imports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avault",
		Name:      "imports_total",
		Help:      "Spreadsheet imports by result (ok, malformed, error).",
	}, []string{"result"})

	ImportRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avault",
		Name:      "import_rows_total",
		Help:      "Imported spreadsheet rows by classification.",
	}, []string{"kind"})

	LedgerWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avault",
		Name:      "ledger_writes_total",
		Help:      "Historical count writes by action (created, updated).",
	}, []string{"action"})

	Reconciliations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "avault",
		Name:      "reconciliations_total",
		Help:      "Session reconciliations computed.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avault",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "avault",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Imports, ImportRows, LedgerWrites, Reconciliations,
		httpRequests, httpDuration,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		// Run the app's error handler here so the recorded status is the
		// one the client sees.
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := c.Route().Path
		status := strconv.Itoa(c.Response().StatusCode())
		httpRequests.WithLabelValues(c.Method(), route, status).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return nil
	}
}
