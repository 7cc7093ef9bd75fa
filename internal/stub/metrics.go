package stub

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the API double's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	trackedEvents   *prometheus.CounterVec
	publishErrors   *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	queueCapacity   prometheus.Gauge
	contacts        prometheus.Gauge
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "groundhogg",
			Subsystem: "stub",
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route", "status"}),
		trackedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundhogg",
			Subsystem: "stub",
			Name:      "tracked_events_total",
			Help:      "Tracking calls accepted, by event",
		}, []string{"event"}),
		publishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groundhogg",
			Subsystem: "stub",
			Name:      "event_publish_errors_total",
			Help:      "Tracked events that could not be forwarded",
		}, []string{"reason"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundhogg",
			Subsystem: "stub",
			Name:      "event_queue_depth",
			Help:      "Events waiting to be forwarded",
		}),
		queueCapacity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundhogg",
			Subsystem: "stub",
			Name:      "event_queue_capacity",
			Help:      "Size of the forwarding queue",
		}),
		contacts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundhogg",
			Subsystem: "stub",
			Name:      "contacts",
			Help:      "Contacts held by the store",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware records request durations labelled by route template.
func MetricsMiddleware(m *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		m.requestDuration.WithLabelValues(
			c.Method(),
			c.Route().Path,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())

		return err
	}
}

// RecordTracked counts an accepted tracking call.
func (m *Metrics) RecordTracked(event string) {
	m.trackedEvents.WithLabelValues(event).Inc()
}

// RecordPublishError counts an event that was not forwarded.
func (m *Metrics) RecordPublishError(reason string) {
	m.publishErrors.WithLabelValues(reason).Inc()
}

// SetQueue reports the forwarding queue's depth and capacity.
func (m *Metrics) SetQueue(depth, capacity int) {
	m.queueDepth.Set(float64(depth))
	m.queueCapacity.Set(float64(capacity))
}

// SetContacts reports the store size.
func (m *Metrics) SetContacts(n int) {
	m.contacts.Set(float64(n))
}
