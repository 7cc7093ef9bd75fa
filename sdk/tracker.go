package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event names sent by the convenience wrappers.
const (
	EventPageView       = "page_view"
	EventFormView       = "form_view"
	EventFormSubmission = "form_submission"
	EventEmailOpen      = "email_open"
	EventEmailClick     = "email_click"
	EventButtonClick    = "button_click"
	EventProductView    = "product_view"
	EventAddToCart      = "add_to_cart"
	EventPurchase       = "purchase"
	EventVideoPlay      = "video_play"
	EventVideoProgress  = "video_progress"
	EventVideoComplete  = "video_complete"
	EventFileDownload   = "file_download"
)

// timestampLayout is ISO 8601 with milliseconds, always in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Tracker posts analytics events. It keeps its own copy of the contact id;
// the SDK coordinator keeps it in step with the Client.
//
// Tracking never retries or queues. Callers decide whether a failed event
// matters.
type Tracker struct {
	transport *httpTransport
	url       string
	page      PageContext
	clock     func() time.Time
	observer  Observer
	logger    *logrus.Entry

	mu        sync.RWMutex
	contactID ContactID
}

// NewTracker creates a tracker posting to config.TrackingEndpoint.
func NewTracker(config *Config) (*Tracker, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := componentLogger(config.Logger, "tracker")
	transport, err := newHTTPTransport(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Tracker{
		transport: transport,
		url:       config.trackingURL(),
		page:      config.Page,
		clock:     config.Clock,
		observer:  config.Observer,
		logger:    logger,
	}, nil
}

// SetContact sets the id attached to subsequent events. Invalid ids are
// rejected.
func (t *Tracker) SetContact(id ContactID) error {
	if !id.Valid() {
		return NewError(CodeInvalidContactID, "invalid contact ID provided", nil)
	}
	t.mu.Lock()
	t.contactID = id
	t.mu.Unlock()
	return nil
}

// ContactID returns the id attached to events, if any.
func (t *Tracker) ContactID() (ContactID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contactID, t.contactID.Valid()
}

// Payload builds the body Track would send for event and data. Page url,
// referrer and timestamp overwrite keys of the same name in data.
func (t *Tracker) Payload(event string, data map[string]any) TrackingPayload {
	enriched := make(map[string]any, len(data)+3)
	for k, v := range data {
		enriched[k] = v
	}
	page := t.page.Current()
	enriched["url"] = page.URL
	enriched["referrer"] = page.Referrer
	enriched["timestamp"] = t.clock().UTC().Format(timestampLayout)

	id, _ := t.ContactID()
	return TrackingPayload{
		Event:     event,
		ContactID: id,
		Data:      enriched,
	}
}

// Track sends an event and returns the decoded response body (nil for an
// empty body). Every failure is a TRACKING_ERROR; for non-2xx responses it
// carries the server message and status.
func (t *Tracker) Track(ctx context.Context, event string, data map[string]any) (map[string]any, error) {
	start := time.Now()
	result, err := t.send(ctx, event, data)
	t.observer.OnTrack(event, time.Since(start), err)
	if err != nil {
		t.logger.WithError(err).WithField("event", event).Debug("Failed to track event")
	}
	return result, err
}

func (t *Tracker) send(ctx context.Context, event string, data map[string]any) (map[string]any, error) {
	req := request{
		method: http.MethodPost,
		route:  "/track",
		url:    t.url,
		body:   t.Payload(event, data),
	}

	raw, err := t.transport.do(ctx, req)
	if err != nil {
		trackErr := NewError(CodeTracking, "Failed to track event", err)
		trackErr.Status = StatusOf(err)
		return nil, trackErr
	}

	var body map[string]any
	var decodeErr error
	if len(bytes.TrimSpace(raw.body)) > 0 {
		decodeErr = json.Unmarshal(raw.body, &body)
	}

	if raw.status < 200 || raw.status >= 300 {
		message := "Failed to track event"
		if m, ok := body["message"].(string); ok && m != "" {
			message = m
		}
		trackErr := newStatusError(CodeTracking, message, raw.status)
		trackErr.RequestID = raw.requestID
		return nil, trackErr.WithContext(errorContext(req))
	}
	if decodeErr != nil {
		trackErr := NewError(CodeTracking, "Failed to parse tracking response", decodeErr)
		trackErr.Status = raw.status
		trackErr.RequestID = raw.requestID
		return nil, trackErr.WithContext(errorContext(req))
	}
	return body, nil
}

// merge overlays extra on top of fixed; caller data wins.
func merge(fixed, extra map[string]any) map[string]any {
	out := make(map[string]any, len(fixed)+len(extra))
	for k, v := range fixed {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// PageView tracks a page view.
func (t *Tracker) PageView(ctx context.Context, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventPageView, merge(nil, data))
}

// FormView tracks a form being displayed.
func (t *Tracker) FormView(ctx context.Context, formID string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventFormView, merge(map[string]any{"form_id": formID}, data))
}

// FormSubmission tracks a submitted form and its values.
func (t *Tracker) FormSubmission(ctx context.Context, formID string, formData map[string]any) (map[string]any, error) {
	if formData == nil {
		formData = map[string]any{}
	}
	return t.Track(ctx, EventFormSubmission, map[string]any{
		"form_id":   formID,
		"form_data": formData,
	})
}

// EmailOpen tracks an email open.
func (t *Tracker) EmailOpen(ctx context.Context, emailID string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventEmailOpen, merge(map[string]any{"email_id": emailID}, data))
}

// EmailClick tracks a link click inside an email.
func (t *Tracker) EmailClick(ctx context.Context, emailID, linkURL string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventEmailClick, merge(map[string]any{
		"email_id": emailID,
		"link_url": linkURL,
	}, data))
}

// ButtonClick tracks a button click.
func (t *Tracker) ButtonClick(ctx context.Context, buttonID string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventButtonClick, merge(map[string]any{"button_id": buttonID}, data))
}

// CustomEvent tracks an event with a caller-chosen name.
func (t *Tracker) CustomEvent(ctx context.Context, name string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, name, merge(nil, data))
}

// ProductView tracks a product page view.
func (t *Tracker) ProductView(ctx context.Context, productID string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventProductView, merge(map[string]any{"product_id": productID}, data))
}

// AddToCart tracks a product added to the cart.
func (t *Tracker) AddToCart(ctx context.Context, productID string, quantity int, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventAddToCart, merge(map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	}, data))
}

// Purchase tracks a completed order.
func (t *Tracker) Purchase(ctx context.Context, orderID string, amount float64, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventPurchase, merge(map[string]any{
		"order_id": orderID,
		"amount":   amount,
	}, data))
}

// VideoPlay tracks a video starting.
func (t *Tracker) VideoPlay(ctx context.Context, videoID string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventVideoPlay, merge(map[string]any{"video_id": videoID}, data))
}

// VideoProgress tracks playback progress, usually a percentage.
func (t *Tracker) VideoProgress(ctx context.Context, videoID string, progress float64, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventVideoProgress, merge(map[string]any{
		"video_id": videoID,
		"progress": progress,
	}, data))
}

// VideoComplete tracks a video played to the end.
func (t *Tracker) VideoComplete(ctx context.Context, videoID string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventVideoComplete, merge(map[string]any{"video_id": videoID}, data))
}

// FileDownload tracks a file download.
func (t *Tracker) FileDownload(ctx context.Context, fileID, fileName string, data map[string]any) (map[string]any, error) {
	return t.Track(ctx, EventFileDownload, merge(map[string]any{
		"file_id":   fileID,
		"file_name": fileName,
	}, data))
}

// Close releases idle connections.
func (t *Tracker) Close() error {
	return t.transport.close()
}
