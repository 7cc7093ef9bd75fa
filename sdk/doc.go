// Package sdk is a Go client for the Groundhogg CRM REST API and its event
// tracking endpoint.
//
// # Features
//
// The SDK provides:
//   - A Client for contacts and their tags and notes
//   - A Tracker for page, form, email, commerce and media events
//   - A Session that persists the current contact id and follows changes
//     made by other processes or browser tabs
//   - Structured errors with stable codes
//   - Observer hooks, Prometheus metrics and OpenTelemetry spans
//   - WASM support: fetch with cookies and localStorage in the browser
//
// # Basic Usage
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/birbparty/groundhogg-go/sdk"
//	)
//
//	func main() {
//	    groundhogg, err := sdk.New(sdk.DefaultConfig().
//	        WithEndpoint("https://crm.example.com"))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer groundhogg.Close()
//
//	    ctx := context.Background()
//
//	    resp, err := groundhogg.CreateContact(ctx, sdk.Contact{
//	        Email:     "jane@example.com",
//	        FirstName: "Jane",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Printf("contact %d", resp.Data.ID)
//
//	    if _, err := groundhogg.Tracker.PageView(ctx, map[string]any{"path": "/pricing"}); err != nil {
//	        log.Printf("tracking failed: %v", err)
//	    }
//	}
//
// # Configuration
//
// Config is built fluently or from GROUNDHOGG_* environment variables:
//
//	config := sdk.ConfigFromEnv().
//	    WithHeader("X-WP-Nonce", nonce).
//	    WithTimeout(10 * time.Second)
//
// Requests go to {Endpoint}{APIPrefix}/{APIVersion}{path}, by default
// {Endpoint}/wp-json/gh/v4/contacts. Events go to
// {Endpoint}/wp-json/nextjs-groundhogg/v1/track.
//
// # Sessions
//
// The current contact id is stored under Config.StorageKey in a
// storage.Backend. In the browser this is localStorage, and the "storage"
// event keeps tabs in sync. Server-side, storage.File and storage.Redis give
// the same behaviour across processes:
//
//	backend, _ := storage.NewFile(filepath.Join(home, ".groundhogg"))
//	groundhogg, _ := sdk.New(config.WithStorage(backend))
//
// Storage failures are logged at debug level and never returned; the id
// held in memory stays authoritative.
//
// # Error Handling
//
// Every failure is an *Error with a Code. Contact operations wrap request
// failures in an operation code (CREATE_CONTACT_ERROR, ADD_TAGS_ERROR, ...)
// and keep the underlying API_ERROR, NETWORK_ERROR or REQUEST_ERROR
// reachable:
//
//	_, err := client.AddTags(ctx, 3)
//	switch {
//	case sdk.IsNoContact(err):
//	    // identify the visitor first
//	case errors.Is(err, sdk.ErrNetwork):
//	    // the site was unreachable
//	case sdk.StatusOf(err) == http.StatusForbidden:
//	    // nonce expired
//	}
//
// Nothing is retried. A failed call is reported once.
//
// # Observability
//
// Set Config.Observer to a MetricsCollector, a PrometheusObserver or a
// CompositeObserver of both. Each request also runs in an OpenTelemetry
// client span from the global tracer provider, and the trace context is
// propagated in request headers.
package sdk
