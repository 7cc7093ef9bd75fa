// Monitoring Example
// Exposes SDK request and tracking metrics for Prometheus while sending a
// steady stream of page views.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/birbparty/groundhogg-go/sdk"
)

func main() {
	reg := prometheus.NewRegistry()
	promObserver, err := sdk.NewPrometheusObserver(reg)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}
	collector := sdk.NewMetricsCollector()

	groundhogg, err := sdk.New(sdk.DefaultConfig().
		WithEndpoint("http://localhost:8080").
		WithObserver(sdk.NewCompositeObserver(promObserver, collector)))
	if err != nil {
		log.Fatalf("Failed to create SDK: %v", err)
	}
	defer groundhogg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":9090"}
	go func() {
		log.Println("Metrics on http://localhost:9090/metrics")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server failed: %v", err)
		}
	}()

	pages := []string{"/", "/pricing", "/blog/launch", "/checkout"}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			log.Printf("Summary: %v", collector.GetMetrics()["tracked"])
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			return
		case <-ticker.C:
			path := pages[i%len(pages)]
			if _, err := groundhogg.Tracker.PageView(ctx, map[string]any{"path": path}); err != nil {
				log.Printf("Page view %s failed: %v", path, err)
			}
		}
	}
}
