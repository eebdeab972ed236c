package middlewares

import (
	"errors"
	"strconv"
	"time"

	"mind-scribe/cmd/server/handlers/httperr"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StreamStats exposes the live-update hub to the metrics endpoint.
type StreamStats interface {
	Stats() (subscribers int, dropped uint64)
}

// routeLabel keeps label cardinality bounded: matched requests report the
// route template ("/api/notes/:id"), unmatched ones collapse into "unmatched".
func routeLabel(c *fiber.Ctx, status int) string {
	if route := c.Route(); route != nil && route.Path != "/" && route.Path != "" {
		return route.Path
	}
	if status == fiber.StatusNotFound {
		return "unmatched"
	}
	return c.Path()
}

// responseStatus prefers the code carried by a handler error, since the
// error handler has not written it yet.
func responseStatus(c *fiber.Ctx, err error) int {
	var he httperr.E
	if errors.As(err, &he) {
		return he.Status
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	if err != nil {
		return fiber.StatusInternalServerError
	}
	return c.Response().StatusCode()
}

// statusClass folds a status code into its class ("2xx", "4xx", ...).
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}

// AttachMetrics gives app its own Prometheus registry, times every request
// and serves /metrics. When stats is non-nil the notes stream is reported too.
func AttachMetrics(app *fiber.App, stats StreamStats) {
	reg := prometheus.NewRegistry()

	reqDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindscribe",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	reqTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindscribe",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	reg.MustRegister(reqDuration, reqTotal)

	if stats != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "mindscribe",
				Name:      "ws_subscribers",
				Help:      "Open notes stream connections",
			}, func() float64 {
				n, _ := stats.Stats()
				return float64(n)
			}),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: "mindscribe",
				Name:      "ws_dropped_events_total",
				Help:      "Note events dropped because a subscriber outbox was full",
			}, func() float64 {
				_, d := stats.Stats()
				return float64(d)
			}),
		)
	}

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		code := responseStatus(c, err)
		method := c.Method()
		route := routeLabel(c, code)
		status := statusClass(code)

		reqDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		reqTotal.WithLabelValues(method, route, status).Inc()
		return err
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
