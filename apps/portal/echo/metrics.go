package echoportal

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/session"
)

// metrics live in a registry of their own so several servers can run in one process.
type metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	decisions *prometheus.CounterVec
	fetches   *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sms",
			Subsystem: "portal",
			Name:      "requests_total",
			Help:      "Total number of portal requests broken down by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sms",
			Subsystem: "portal",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of portal requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sms",
			Subsystem: "session",
			Name:      "decisions_total",
			Help:      "Route access decisions broken down by verdict.",
		}, []string{"verdict"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sms",
			Subsystem: "listing",
			Name:      "fetches_total",
			Help:      "List screen fetches broken down by screen, mode and outcome.",
		}, []string{"screen", "mode", "outcome"}),
	}
}

func (m *metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			ctx.Error(err) // so the status code is known
		}
		route := ctx.Path()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(ctx.Response().Status)).Inc()
		m.latency.WithLabelValues(ctx.Request().Method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}

func (m *metrics) decision(v session.Verdict) {
	m.decisions.WithLabelValues(v.String()).Inc()
}

// fetchObserver feeds listing.Options.OnFetch.
func (m *metrics) fetchObserver(screen string) func(listing.Mode, error) {
	return func(mode listing.Mode, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		m.fetches.WithLabelValues(screen, mode.String(), outcome).Inc()
	}
}

func (m *metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
