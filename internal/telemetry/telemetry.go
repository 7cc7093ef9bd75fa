// Package telemetry wires structured logging and OpenTelemetry tracing for
// the groundhogg binaries.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Telemetry is what Init started.
type Telemetry struct {
	Logger   *logrus.Logger
	shutdown ShutdownFunc
}

// Init initializes all telemetry components
func Init(ctx context.Context, cfg *Config, logOut io.Writer) (*Telemetry, error) {
	log := InitLogger(cfg, logOut)

	shutdown, err := InitTracing(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	log.WithFields(logrus.Fields{
		"tracing":   cfg.EnableTracing,
		"traceFile": cfg.TracesFilePath,
	}).Debug("Telemetry initialized")

	return &Telemetry{Logger: log, shutdown: shutdown}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	if err := t.shutdown(ctx); err != nil {
		t.Logger.WithError(err).Error("Failed to close tracing")
		return err
	}
	return nil
}
