// Package metrics holds the Prometheus collectors. A nil *Metrics records nothing.
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

const namespace = "fanova"

type Metrics struct {
	registry       *prometheus.Registry
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	generations    *prometheus.CounterVec
	creditsSpent   prometheus.Counter
	creditsGranted *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation jobs by outcome.",
		}, []string{"outcome"}),
		creditsSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_spent_total",
			Help:      "Credits charged for generations.",
		}),
		creditsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_granted_total",
			Help:      "Credits granted by ledger type.",
		}, []string{"type"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stripe_webhook_events_total",
			Help:      "Stripe webhook deliveries by event type and result.",
		}, []string{"type", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.generations,
		m.creditsSpent,
		m.creditsGranted,
		m.webhookEvents,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records every request under its route template, not the raw path.
func (m *Metrics) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		route := ctx.Route().Path
		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		m.httpRequests.WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) Generation(outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CreditsSpent(amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.creditsSpent.Add(float64(amount))
}

func (m *Metrics) CreditsGranted(ledgerType string, amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.creditsGranted.WithLabelValues(ledgerType).Add(float64(amount))
}

func (m *Metrics) WebhookEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}
