package stub

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// AsyncPublisherStats provides statistics about the forwarding queue
type AsyncPublisherStats struct {
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`
	WorkerCount   int `json:"worker_count"`
}

type publishRequest struct {
	ctx   context.Context
	event *TrackedEvent
}

// AsyncPublisher forwards events from a bounded queue so tracking calls
// never wait on the broker. Events arriving while the queue is full are
// dropped and counted.
type AsyncPublisher struct {
	next    Publisher
	queue   chan publishRequest
	workers int
	metrics *Metrics
	logger  *logrus.Entry

	wg       sync.WaitGroup
	mu       sync.RWMutex
	shutdown bool
}

// NewAsyncPublisher starts workers draining into next.
func NewAsyncPublisher(next Publisher, queueSize, workers int, metrics *Metrics, logger *logrus.Entry) *AsyncPublisher {
	ap := &AsyncPublisher{
		next:    next,
		queue:   make(chan publishRequest, queueSize),
		workers: workers,
		metrics: metrics,
		logger:  logger,
	}
	metrics.SetQueue(0, queueSize)

	for i := 0; i < workers; i++ {
		ap.wg.Add(1)
		go ap.worker(i)
	}
	return ap
}

// Enqueue queues an event, reporting whether it was accepted. The request
// context's values survive but its cancellation does not.
func (ap *AsyncPublisher) Enqueue(ctx context.Context, event *TrackedEvent) bool {
	ap.mu.RLock()
	defer ap.mu.RUnlock()
	if ap.shutdown {
		ap.metrics.RecordPublishError("shutdown")
		return false
	}

	select {
	case ap.queue <- publishRequest{ctx: context.WithoutCancel(ctx), event: event}:
		ap.metrics.SetQueue(len(ap.queue), cap(ap.queue))
		return true
	default:
		ap.logger.WithField("event", event.Event).Warn("Event queue full, dropping event")
		ap.metrics.RecordPublishError("queue_full")
		return false
	}
}

func (ap *AsyncPublisher) worker(id int) {
	defer ap.wg.Done()
	for req := range ap.queue {
		ctx, cancel := context.WithTimeout(req.ctx, publishTimeout)
		err := ap.next.Publish(ctx, req.event)
		cancel()

		if err != nil {
			ap.logger.WithError(err).WithFields(logrus.Fields{
				"worker": id,
				"event":  req.event.Event,
				"id":     req.event.ID,
			}).Error("Failed to forward event")
			ap.metrics.RecordPublishError("publish_failed")
		}
		ap.metrics.SetQueue(len(ap.queue), cap(ap.queue))
	}
}

// Stats returns current statistics
func (ap *AsyncPublisher) Stats() AsyncPublisherStats {
	return AsyncPublisherStats{
		QueueDepth:    len(ap.queue),
		QueueCapacity: cap(ap.queue),
		WorkerCount:   ap.workers,
	}
}

// Shutdown stops accepting events, drains the queue and closes next.
func (ap *AsyncPublisher) Shutdown() error {
	ap.mu.Lock()
	if ap.shutdown {
		ap.mu.Unlock()
		return nil
	}
	ap.shutdown = true
	close(ap.queue)
	ap.mu.Unlock()

	ap.wg.Wait()
	return ap.next.Close()
}
