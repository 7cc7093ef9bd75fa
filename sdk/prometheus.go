package sdk

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver exports request and tracking metrics. Routes are
// path templates, so label cardinality stays bounded.
//
// Example:
//
//	observer, err := sdk.NewPrometheusObserver(prometheus.DefaultRegisterer)
//	if err != nil {
//	    return err
//	}
//	config := sdk.DefaultConfig().WithObserver(observer)
type PrometheusObserver struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	eventsTotal     *prometheus.CounterVec
	trackDuration   prometheus.Histogram
}

// NewPrometheusObserver registers the SDK metrics on reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "groundhogg",
				Subsystem: "sdk",
				Name:      "requests_total",
				Help:      "Total number of requests sent to the Groundhogg API",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "groundhogg",
				Subsystem: "sdk",
				Name:      "request_duration_seconds",
				Help:      "Duration of requests to the Groundhogg API",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "groundhogg",
				Subsystem: "sdk",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently in flight",
			},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "groundhogg",
				Subsystem: "sdk",
				Name:      "tracked_events_total",
				Help:      "Total number of tracked events by result",
			},
			[]string{"event", "result"},
		),
		trackDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "groundhogg",
				Subsystem: "sdk",
				Name:      "track_duration_seconds",
				Help:      "Duration of tracking calls",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	for _, c := range []prometheus.Collector{
		o.requestsTotal, o.requestDuration, o.inFlight, o.eventsTotal, o.trackDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnRequestStart marks a request in flight.
func (o *PrometheusObserver) OnRequestStart(method, route string) {
	o.inFlight.Inc()
}

// OnRequestEnd records the outcome. Requests with no response are
// labelled status "error".
func (o *PrometheusObserver) OnRequestEnd(method, route string, status int, duration time.Duration, err error) {
	o.inFlight.Dec()
	label := "error"
	if err == nil {
		label = strconv.Itoa(status)
	}
	o.requestsTotal.WithLabelValues(method, route, label).Inc()
	o.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// OnTrack counts the event.
func (o *PrometheusObserver) OnTrack(event string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	o.eventsTotal.WithLabelValues(event, result).Inc()
	o.trackDuration.Observe(duration.Seconds())
}
