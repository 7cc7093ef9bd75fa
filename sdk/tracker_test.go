package sdk

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/groundhogg-go/sdk/sdktest"
)

func newTestTracker(t *testing.T, config *Config) *Tracker {
	t.Helper()
	tracker, err := NewTracker(config)
	require.NoError(t, err)
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

func TestTracker_PayloadEnrichment(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	tracker := newTestTracker(t, testConfig(ts))
	require.NoError(t, tracker.SetContact(31))

	payload := tracker.Payload(EventPageView, map[string]any{})
	assert.Equal(t, "page_view", payload.Event)
	assert.Equal(t, ContactID(31), payload.ContactID)
	assert.Equal(t, "https://shop.example.com/pricing", payload.Data["url"])
	assert.Equal(t, "https://search.example.com/", payload.Data["referrer"])
	assert.Equal(t, "2024-03-01T12:30:45.123Z", payload.Data["timestamp"])
}

func TestTracker_TrackPostsPayload(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	tracker := newTestTracker(t, testConfig(ts))
	require.NoError(t, tracker.SetContact(8))

	result, err := tracker.Track(ts.Context, "page_view", map[string]any{"path": "/pricing", "url": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])

	last, ok := ts.Server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, sdktest.TrackingPath, last.Path)

	body := last.JSON()
	assert.Equal(t, "page_view", body["event"])
	assert.Equal(t, float64(8), body["contact_id"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/pricing", data["path"])
	assert.Equal(t, "https://shop.example.com/pricing", data["url"])
	assert.Equal(t, "https://search.example.com/", data["referrer"])
	assert.Equal(t, "2024-03-01T12:30:45.123Z", data["timestamp"])
}

func TestTracker_OmitsUnsetContact(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	tracker := newTestTracker(t, testConfig(ts))

	_, err := tracker.PageView(ts.Context, nil)
	require.NoError(t, err)

	last, _ := ts.Server.LastRequest()
	assert.NotContains(t, last.JSON(), "contact_id")
}

func TestTracker_Errors(t *testing.T) {
	t.Run("server rejects event", func(t *testing.T) {
		ts := sdktest.NewTestSuite(t)
		ts.Server.WithErrorResponse("POST "+sdktest.TrackingPath, http.StatusBadRequest, "invalid_event", "Unknown event type")
		tracker := newTestTracker(t, testConfig(ts))

		_, err := tracker.Track(ts.Context, "mystery", nil)
		require.Error(t, err)
		assert.Equal(t, CodeTracking, CodeOf(err))
		assert.Equal(t, http.StatusBadRequest, StatusOf(err))

		var trackErr *Error
		require.ErrorAs(t, err, &trackErr)
		assert.Equal(t, "Unknown event type", trackErr.Message)
	})

	t.Run("server error without message", func(t *testing.T) {
		ts := sdktest.NewTestSuite(t)
		ts.Server.WithRawResponse("POST "+sdktest.TrackingPath, http.StatusServiceUnavailable, "down")
		tracker := newTestTracker(t, testConfig(ts))

		_, err := tracker.Track(ts.Context, "page_view", nil)
		require.Error(t, err)
		assert.Equal(t, CodeTracking, CodeOf(err))
		assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
	})

	t.Run("network failure", func(t *testing.T) {
		ts := sdktest.NewTestSuite(t)
		tracker := newTestTracker(t, testConfig(ts))
		ts.Server.Close()

		_, err := tracker.Track(context.Background(), "page_view", nil)
		require.Error(t, err)
		assert.Equal(t, CodeTracking, CodeOf(err))
		assert.ErrorIs(t, err, ErrNetwork)
	})

	t.Run("undecodable body", func(t *testing.T) {
		ts := sdktest.NewTestSuite(t)
		ts.Server.WithRawResponse("POST "+sdktest.TrackingPath, http.StatusOK, "ok")
		tracker := newTestTracker(t, testConfig(ts))

		_, err := tracker.Track(ts.Context, "page_view", nil)
		assert.Equal(t, CodeTracking, CodeOf(err))
	})
}

func TestTracker_EmptyResponseBody(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	ts.Server.RegisterHandler("POST "+sdktest.TrackingPath, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusNoContent, nil
	})
	tracker := newTestTracker(t, testConfig(ts))

	result, err := tracker.Track(ts.Context, "page_view", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTracker_Wrappers(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	tracker := newTestTracker(t, testConfig(ts))
	ctx := ts.Context
	extra := map[string]any{"campaign": "spring"}

	tests := []struct {
		name  string
		call  func() error
		event string
		want  map[string]any
	}{
		{"PageView", func() error { _, err := tracker.PageView(ctx, extra); return err },
			"page_view", map[string]any{"campaign": "spring"}},
		{"FormView", func() error { _, err := tracker.FormView(ctx, "f1", extra); return err },
			"form_view", map[string]any{"form_id": "f1", "campaign": "spring"}},
		{"FormSubmission", func() error {
			_, err := tracker.FormSubmission(ctx, "f1", map[string]any{"email": "a@b.com"})
			return err
		}, "form_submission", map[string]any{"form_id": "f1", "form_data": map[string]any{"email": "a@b.com"}}},
		{"EmailOpen", func() error { _, err := tracker.EmailOpen(ctx, "e1", nil); return err },
			"email_open", map[string]any{"email_id": "e1"}},
		{"EmailClick", func() error { _, err := tracker.EmailClick(ctx, "e1", "https://x.test", nil); return err },
			"email_click", map[string]any{"email_id": "e1", "link_url": "https://x.test"}},
		{"ButtonClick", func() error { _, err := tracker.ButtonClick(ctx, "buy", nil); return err },
			"button_click", map[string]any{"button_id": "buy"}},
		{"CustomEvent", func() error { _, err := tracker.CustomEvent(ctx, "quiz_done", extra); return err },
			"quiz_done", map[string]any{"campaign": "spring"}},
		{"ProductView", func() error { _, err := tracker.ProductView(ctx, "p1", nil); return err },
			"product_view", map[string]any{"product_id": "p1"}},
		{"AddToCart", func() error { _, err := tracker.AddToCart(ctx, "p1", 3, nil); return err },
			"add_to_cart", map[string]any{"product_id": "p1", "quantity": float64(3)}},
		{"Purchase", func() error { _, err := tracker.Purchase(ctx, "o1", 49.5, nil); return err },
			"purchase", map[string]any{"order_id": "o1", "amount": 49.5}},
		{"VideoPlay", func() error { _, err := tracker.VideoPlay(ctx, "v1", nil); return err },
			"video_play", map[string]any{"video_id": "v1"}},
		{"VideoProgress", func() error { _, err := tracker.VideoProgress(ctx, "v1", 50, nil); return err },
			"video_progress", map[string]any{"video_id": "v1", "progress": float64(50)}},
		{"VideoComplete", func() error { _, err := tracker.VideoComplete(ctx, "v1", nil); return err },
			"video_complete", map[string]any{"video_id": "v1"}},
		{"FileDownload", func() error { _, err := tracker.FileDownload(ctx, "d1", "guide.pdf", nil); return err },
			"file_download", map[string]any{"file_id": "d1", "file_name": "guide.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())

			last, _ := ts.Server.LastRequest()
			body := last.JSON()
			assert.Equal(t, tt.event, body["event"])

			data := body["data"].(map[string]any)
			for k, v := range tt.want {
				assert.Equal(t, v, data[k], k)
			}
		})
	}
}

func TestTracker_CallerDataOverridesWrapperFields(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	tracker := newTestTracker(t, testConfig(ts))

	payload := tracker.Payload(EventFormView, merge(map[string]any{"form_id": "a"}, map[string]any{"form_id": "b"}))
	assert.Equal(t, "b", payload.Data["form_id"])
}

func TestTracker_AbsoluteTrackingEndpoint(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	ts.Server.RegisterHandler("POST /collect", func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusOK, map[string]any{"ok": true}
	})

	config := testConfig(ts).
		WithEndpoint("https://crm.invalid").
		WithTrackingEndpoint(ts.BaseURL + "/collect")
	tracker := newTestTracker(t, config)

	result, err := tracker.Track(ts.Context, "page_view", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
}

func TestTracker_SetContactValidates(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	tracker := newTestTracker(t, testConfig(ts))

	assert.ErrorIs(t, tracker.SetContact(-1), ErrInvalidContactID)
	_, ok := tracker.ContactID()
	assert.False(t, ok)

	require.NoError(t, tracker.SetContact(4))
	id, ok := tracker.ContactID()
	assert.True(t, ok)
	assert.Equal(t, ContactID(4), id)
}
