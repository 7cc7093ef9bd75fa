package sdk

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/groundhogg-go/sdk/sdktest"
)

func TestMetricsCollector_RecordsClientTraffic(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	ts.Server.WithErrorResponse("POST "+sdktest.TrackingPath, http.StatusBadRequest, "bad", "bad event")

	metrics := NewMetricsCollector()
	config := testConfig(ts).WithObserver(metrics)
	client := newTestClient(t, ts, config)
	tracker := newTestTracker(t, config)

	_, err := client.ListContacts(ts.Context)
	require.NoError(t, err)
	_, err = client.ListContacts(ts.Context)
	require.NoError(t, err)
	_, err = tracker.PageView(ts.Context, nil)
	require.Error(t, err)

	snapshot := metrics.GetMetrics()
	requests := snapshot["requests"].(map[string]int64)
	assert.Equal(t, int64(2), requests["GET /contacts"])
	assert.Equal(t, int64(1), requests["POST /track"])

	errs := snapshot["errors"].(map[string]int64)
	assert.Equal(t, int64(1), errs["POST /track"])
	assert.Zero(t, errs["GET /contacts"])

	statuses := snapshot["statuses"].(map[int]int64)
	assert.Equal(t, int64(2), statuses[http.StatusOK])
	assert.Equal(t, int64(1), statuses[http.StatusBadRequest])

	assert.Equal(t, int64(1), snapshot["tracked"].(map[string]int64)["page_view"])
	assert.Equal(t, int64(1), snapshot["tracking_errors"].(map[string]int64)["page_view"])
	assert.Len(t, snapshot["latencies"].(map[string][]time.Duration)["GET /contacts"], 2)
}

type panickingObserver struct{ *NoopObserver }

func (panickingObserver) OnRequestStart(method, route string) { panic("boom") }

func TestCompositeObserver_SurvivesPanics(t *testing.T) {
	metrics := NewMetricsCollector()
	composite := NewCompositeObserver(panickingObserver{&NoopObserver{}}, metrics)

	assert.NotPanics(t, func() {
		composite.OnRequestStart("GET", "/contacts")
		composite.OnRequestEnd("GET", "/contacts", 0, time.Millisecond, errors.New("refused"))
		composite.OnTrack("page_view", time.Millisecond, nil)
	})

	snapshot := metrics.GetMetrics()
	assert.Equal(t, int64(1), snapshot["requests"].(map[string]int64)["GET /contacts"])
	assert.Equal(t, int64(1), snapshot["errors"].(map[string]int64)["GET /contacts"])
	assert.Equal(t, int64(1), snapshot["tracked"].(map[string]int64)["page_view"])
}

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	observer, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	ts := sdktest.NewTestSuite(t)
	config := testConfig(ts).WithObserver(observer)
	client := newTestClient(t, ts, config)
	tracker := newTestTracker(t, config)

	_, err = client.ListContacts(ts.Context)
	require.NoError(t, err)
	_, err = tracker.ButtonClick(ts.Context, "signup", nil)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := ""
			for _, pair := range metric.GetLabel() {
				labels += pair.GetName() + "=" + pair.GetValue() + ","
			}
			switch {
			case metric.GetCounter() != nil:
				counts[family.GetName()+"{"+labels+"}"] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				counts[family.GetName()] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				counts[family.GetName()+"{"+labels+"}"] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 1.0, counts["groundhogg_sdk_requests_total{method=GET,route=/contacts,status=200,}"])
	assert.Equal(t, 1.0, counts["groundhogg_sdk_requests_total{method=POST,route=/track,status=200,}"])
	assert.Equal(t, 1.0, counts["groundhogg_sdk_tracked_events_total{event=button_click,result=success,}"])
	assert.Equal(t, 1.0, counts["groundhogg_sdk_request_duration_seconds{method=GET,route=/contacts,}"])
	assert.Equal(t, 0.0, counts["groundhogg_sdk_requests_in_flight"])

	_, err = NewPrometheusObserver(reg)
	assert.Error(t, err, "registering twice must fail")
}
