package stub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, event *TrackedEvent) error {
	b.started <- struct{}{}
	<-b.release
	return nil
}

func (b *blockingPublisher) Close() error { return nil }

func TestAsyncPublisher_DropsWhenFull(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	blocker := &blockingPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	ap := NewAsyncPublisher(blocker, 1, 1, metrics, quietEntry())

	require.True(t, ap.Enqueue(context.Background(), &TrackedEvent{ID: "1", Event: "page_view"}))
	<-blocker.started

	assert.True(t, ap.Enqueue(context.Background(), &TrackedEvent{ID: "2", Event: "page_view"}))
	assert.False(t, ap.Enqueue(context.Background(), &TrackedEvent{ID: "3", Event: "page_view"}))
	assert.Equal(t, AsyncPublisherStats{QueueDepth: 1, QueueCapacity: 1, WorkerCount: 1}, ap.Stats())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.publishErrors.WithLabelValues("queue_full")))

	close(blocker.release)
	require.NoError(t, ap.Shutdown())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.queueDepth))
}

func TestAsyncPublisher_CountsFailures(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Twice()
	publisher.On("Close").Return(nil).Once()

	ap := NewAsyncPublisher(publisher, 10, 2, metrics, quietEntry())
	ap.Enqueue(context.Background(), &TrackedEvent{ID: "1", Event: "purchase"})
	ap.Enqueue(context.Background(), &TrackedEvent{ID: "2", Event: "purchase"})
	require.NoError(t, ap.Shutdown())

	publisher.AssertExpectations(t)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.publishErrors.WithLabelValues("publish_failed")))
}

func TestAsyncPublisher_OutlivesRequestContext(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()
	publisher.On("Close").Return(nil)

	ap := NewAsyncPublisher(publisher, 10, 1, NewMetrics(prometheus.NewRegistry()), quietEntry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.True(t, ap.Enqueue(ctx, &TrackedEvent{ID: "1", Event: "video_play"}))
	require.NoError(t, ap.Shutdown())

	publisher.AssertExpectations(t)
}

func TestAsyncPublisher_RejectsAfterShutdown(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	ap := NewAsyncPublisher(NoopPublisher{}, 10, 1, metrics, quietEntry())
	require.NoError(t, ap.Shutdown())
	require.NoError(t, ap.Shutdown())

	assert.False(t, ap.Enqueue(context.Background(), &TrackedEvent{ID: "1", Event: "page_view"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.publishErrors.WithLabelValues("shutdown")))
}

func runJetStream(t *testing.T) string {
	t.Helper()
	opts := natstest.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	srv := natstest.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv.ClientURL()
}

func testNATSConfig(url string) NATSConfig {
	cfg := DefaultConfig().NATS
	cfg.URL = url
	return cfg
}

func TestNATSPublisher_PublishesPerEventSubject(t *testing.T) {
	url := runJetStream(t)
	publisher, err := NewNATSPublisher(testNATSConfig(url), quietEntry())
	require.NoError(t, err)
	defer publisher.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync("groundhogg.events.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	event := &TrackedEvent{
		ID:         "evt-1",
		Event:      "add_to_cart",
		ContactID:  42,
		Data:       map[string]any{"product_id": "sku-1", "quantity": float64(2)},
		ReceivedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, publisher.Publish(context.Background(), event))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "groundhogg.events.add_to_cart", msg.Subject)

	var got TrackedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, *event, got)
}

func TestNATSPublisher_DeduplicatesByEventID(t *testing.T) {
	url := runJetStream(t)
	publisher, err := NewNATSPublisher(testNATSConfig(url), quietEntry())
	require.NoError(t, err)
	defer publisher.Close()

	event := &TrackedEvent{ID: "evt-dup", Event: "purchase"}
	require.NoError(t, publisher.Publish(context.Background(), event))
	require.NoError(t, publisher.Publish(context.Background(), event))

	info, err := publisher.js.StreamInfo("GROUNDHOGG_EVENTS")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestNATSPublisher_ReusesExistingStream(t *testing.T) {
	url := runJetStream(t)
	first, err := NewNATSPublisher(testNATSConfig(url), quietEntry())
	require.NoError(t, err)
	defer first.Close()

	second, err := NewNATSPublisher(testNATSConfig(url), quietEntry())
	require.NoError(t, err)
	defer second.Close()
}

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "page_view", subjectToken("page_view"))
	assert.Equal(t, "checkout_step_2", subjectToken("checkout.step 2"))
	assert.Equal(t, "_", subjectToken(">"))
	assert.Equal(t, "unknown", subjectToken(""))
}
