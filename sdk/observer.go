package sdk

import (
	"sync"
	"time"
)

// Observer provides hooks for monitoring SDK operations.
// Observer methods are called synchronously on the request path and should
// be fast and non-blocking.
//
// Example implementation:
//
//	type LogObserver struct {
//	    logger *log.Logger
//	}
//
//	func (o *LogObserver) OnRequestStart(method, route string) {
//	    o.logger.Printf("[START] %s %s", method, route)
//	}
//
//	func (o *LogObserver) OnRequestEnd(method, route string, status int, duration time.Duration, err error) {
//	    o.logger.Printf("[END] %s %s %d (took %v) %v", method, route, status, duration, err)
//	}
//
//	func (o *LogObserver) OnTrack(event string, duration time.Duration, err error) {}
type Observer interface {
	// OnRequestStart is called before a request is sent.
	//
	// Parameters:
	//   - method: HTTP method
	//   - route: Path template, e.g. "/contacts/{id}/tags"
	OnRequestStart(method, route string)

	// OnRequestEnd is called when a request completes.
	//
	// Parameters:
	//   - method: HTTP method
	//   - route: Path template
	//   - status: HTTP status, zero when no response arrived
	//   - duration: Time taken for the request
	//   - err: Transport error, nil whenever a response arrived
	OnRequestEnd(method, route string, status int, duration time.Duration, err error)

	// OnTrack is called once per tracked event after it was sent.
	OnTrack(event string, duration time.Duration, err error)
}

// NoopObserver is a no-op implementation of Observer.
// This is the default observer used when none is configured.
type NoopObserver struct{}

// OnRequestStart does nothing
func (n *NoopObserver) OnRequestStart(method, route string) {}

// OnRequestEnd does nothing
func (n *NoopObserver) OnRequestEnd(method, route string, status int, duration time.Duration, err error) {
}

// OnTrack does nothing
func (n *NoopObserver) OnTrack(event string, duration time.Duration, err error) {}

// MetricsCollector is a simple in-memory metrics implementation, intended
// for debugging and tests. Use PrometheusObserver in production.
//
// Example:
//
//	metrics := sdk.NewMetricsCollector()
//	config := sdk.DefaultConfig().
//	    WithEndpoint("https://crm.example.com").
//	    WithObserver(metrics)
//
//	// ...
//
//	snapshot := metrics.GetMetrics()
//	fmt.Printf("Total requests: %v\n", snapshot["requests"])
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount map[string]int64
	latencies    map[string][]time.Duration
	errorCount   map[string]int64
	statusCount  map[int]int64
	trackCount   map[string]int64
	trackErrors  map[string]int64
}

// NewMetricsCollector creates a new metrics collector.
// The collector is thread-safe and can be used concurrently.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestCount: make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		errorCount:   make(map[string]int64),
		statusCount:  make(map[int]int64),
		trackCount:   make(map[string]int64),
		trackErrors:  make(map[string]int64),
	}
}

// OnRequestStart increments request count
func (m *MetricsCollector) OnRequestStart(method, route string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[method+" "+route]++
}

// OnRequestEnd records duration, status and failures. A response with a
// status of 400 or above counts as an error.
func (m *MetricsCollector) OnRequestEnd(method, route string, status int, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + route
	m.latencies[key] = append(m.latencies[key], duration)
	m.statusCount[status]++
	if err != nil || status >= 400 {
		m.errorCount[key]++
	}
}

// OnTrack counts tracked events by name
func (m *MetricsCollector) OnTrack(event string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackCount[event]++
	if err != nil {
		m.trackErrors[event]++
	}
}

// GetMetrics returns a snapshot of current metrics.
// The returned map is a copy and safe to read without locks.
//
// The metrics include:
//   - "requests": Map of "METHOD route" to request count
//   - "latencies": Map of "METHOD route" to latency measurements
//   - "errors": Map of "METHOD route" to error count
//   - "statuses": Map of HTTP status to count (0 = no response)
//   - "tracked": Map of event name to count
//   - "tracking_errors": Map of event name to failure count
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latenciesCopy := make(map[string][]time.Duration, len(m.latencies))
	for k, v := range m.latencies {
		latenciesCopy[k] = append([]time.Duration(nil), v...)
	}
	statusCopy := make(map[int]int64, len(m.statusCount))
	for k, v := range m.statusCount {
		statusCopy[k] = v
	}

	return map[string]interface{}{
		"requests":        copyCounts(m.requestCount),
		"latencies":       latenciesCopy,
		"errors":          copyCounts(m.errorCount),
		"statuses":        statusCopy,
		"tracked":         copyCounts(m.trackCount),
		"tracking_errors": copyCounts(m.trackErrors),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// CompositeObserver fans every callback out to several observers in order.
// A panicking observer is skipped so it cannot break the others or the
// request.
//
// Example:
//
//	observer := sdk.NewCompositeObserver(
//	    sdk.NewMetricsCollector(),
//	    promObserver,
//	)
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an observer that delegates to multiple observers.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

// OnRequestStart notifies all observers of request start.
func (c *CompositeObserver) OnRequestStart(method, route string) {
	c.each(func(obs Observer) { obs.OnRequestStart(method, route) })
}

// OnRequestEnd notifies all observers of request completion.
func (c *CompositeObserver) OnRequestEnd(method, route string, status int, duration time.Duration, err error) {
	c.each(func(obs Observer) { obs.OnRequestEnd(method, route, status, duration, err) })
}

// OnTrack notifies all observers of a tracked event.
func (c *CompositeObserver) OnTrack(event string, duration time.Duration, err error) {
	c.each(func(obs Observer) { obs.OnTrack(event, duration, err) })
}

func (c *CompositeObserver) each(fn func(Observer)) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				_ = recover()
			}()
			fn(obs)
		}()
	}
}
