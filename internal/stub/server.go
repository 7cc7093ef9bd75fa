// Package stub is a self-contained stand-in for a Groundhogg site: the
// contacts REST API, the tracking endpoint, and forwarding of tracked events
// to NATS JetStream.
package stub

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// Server bundles the app with the resources it owns.
type Server struct {
	App     *fiber.App
	Store   *Store
	Metrics *Metrics
	events  *AsyncPublisher
	config  *Config
	logger  *logrus.Entry
}

// New wires a Server from config. With cfg.NATS.URL empty tracked events are
// accepted and discarded.
func New(cfg *Config, logger *logrus.Logger) (*Server, error) {
	entry := logger.WithField("component", "stub")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(reg)

	var publisher Publisher = NoopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := NewNATSPublisher(cfg.NATS, entry.WithField("component", "nats"))
		if err != nil {
			return nil, err
		}
		publisher = natsPublisher
		entry.WithFields(logrus.Fields{
			"url":    cfg.NATS.URL,
			"stream": cfg.NATS.StreamName,
		}).Info("Forwarding tracked events to NATS")
	}

	return NewWithPublisher(cfg, publisher, metrics, entry), nil
}

// NewWithPublisher wires a Server around an existing publisher.
func NewWithPublisher(cfg *Config, publisher Publisher, metrics *Metrics, logger *logrus.Entry) *Server {
	store := NewStore()
	events := NewAsyncPublisher(publisher, cfg.EventQueueSize, cfg.EventWorkers, metrics, logger)
	handler := NewHandler(store, events, metrics, logger)

	return &Server{
		App:     NewApp(cfg, handler, metrics),
		Store:   store,
		Metrics: metrics,
		events:  events,
		config:  cfg,
		logger:  logger,
	}
}

// Listen blocks serving on the configured host and port.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.WithField("addr", addr).Info("Groundhogg API stub listening")
	return s.App.Listen(addr)
}

// Shutdown stops the listener, then drains pending events.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Join(
		s.App.ShutdownWithContext(ctx),
		s.events.Shutdown(),
	)
}
