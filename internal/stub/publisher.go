package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher forwards tracked events somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, event *TrackedEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *TrackedEvent) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }

// NATSPublisher writes events to a JetStream stream, one subject per event
// name under the configured prefix.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config NATSConfig
}

// NewNATSPublisher connects and makes sure the stream exists.
func NewNATSPublisher(config NATSConfig, logger *logrus.Entry) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.WithError(err).Error("NATS error")
		}),
	}
	if config.User != "" && config.Password != "" {
		opts = append(opts, nats.UserInfo(config.User, config.Password))
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream := &nats.StreamConfig{
		Name:        config.StreamName,
		Description: "Groundhogg tracked events",
		Subjects:    []string{config.SubjectPrefix + ".>"},
		Retention:   nats.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Storage:     nats.FileStorage,
	}
	if _, err := js.AddStream(stream); err != nil {
		if _, err = js.UpdateStream(stream); err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create/update event stream: %w", err)
		}
	}

	return &NATSPublisher{nc: nc, js: js, config: config}, nil
}

// Subject returns the subject an event name is published on.
func (p *NATSPublisher) Subject(event string) string {
	return p.config.SubjectPrefix + "." + subjectToken(event)
}

// Publish implements Publisher. The event id doubles as the JetStream
// deduplication id.
func (p *NATSPublisher) Publish(ctx context.Context, event *TrackedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.js.Publish(p.Subject(event.Event), data, nats.MsgId(event.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Event, err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// subjectToken maps an event name onto a single NATS subject token.
func subjectToken(event string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, event)
	if token == "" {
		return "unknown"
	}
	return token
}
