// Command ghstub serves a local Groundhogg API double for development and
// integration tests.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birbparty/groundhogg-go/internal/stub"
	"github.com/birbparty/groundhogg-go/internal/telemetry"
)

func main() {
	ctx := context.Background()

	tel, err := telemetry.Init(ctx, telemetry.NewConfigFromEnv("groundhogg-stub"), os.Stdout)
	if err != nil {
		telemetry.L().WithError(err).Fatal("Failed to initialize telemetry")
	}
	log := tel.Logger

	cfg, err := stub.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	srv, err := stub.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to start API stub")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server forced to shutdown")
		}
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to flush traces")
		}
	}()

	if err := srv.Listen(); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
