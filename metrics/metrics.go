// Package metrics holds the Prometheus instrumentation for the catalog
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Publisher metrics
	EventsPublished *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec

	// Consumer metrics
	EventsConsumed     *prometheus.CounterVec
	EventsDeadLettered prometheus.Counter
	EventsSkipped      prometheus.Counter

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New creates and registers all metrics on the given registry.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_events_published_total",
				Help: "Total number of events successfully published to the broker",
			},
			[]string{"event_type"},
		),
		PublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_publish_failures_total",
				Help: "Total number of failed publish attempts",
			},
			[]string{"event_type"},
		),
		PublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_publish_duration_seconds",
				Help:    "Time spent delivering one event to the broker",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),
		EventsConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_events_consumed_total",
				Help: "Total number of events run through the consumer pipeline",
			},
			[]string{"event_type", "state"},
		),
		EventsDeadLettered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_events_dead_lettered_total",
				Help: "Total number of undecodable payloads handed to the dead-letterer",
			},
		),
		EventsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_events_skipped_total",
				Help: "Total number of redeliveries skipped by the idempotency ledger",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
