package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Version is reported in the User-Agent header.
	Version = "1.0.0"

	tracerName = "github.com/birbparty/groundhogg-go/sdk"
)

// request describes one call. route is the path template ("/contacts/{id}")
// used for span names and metric labels; url is the concrete target.
type request struct {
	method  string
	route   string
	url     string
	body    any
	headers map[string]string
}

type rawResponse struct {
	status    int
	body      []byte
	requestID string
}

// roundTripper sends one request. Any status is a successful round trip;
// errors mean no response was received. Implementations live in
// native.go (net/http) and wasm.go (the browser Fetch API).
type roundTripper interface {
	roundTrip(ctx context.Context, method, url string, headers map[string]string, body []byte) (*rawResponse, error)
	close() error
}

// httpTransport adds headers, tracing, logging and observer callbacks
// around a platform roundTripper. Status interpretation is left to the
// caller since the REST API and the tracking endpoint report errors
// differently.
type httpTransport struct {
	rt       roundTripper
	config   *Config
	observer Observer
	tracer   trace.Tracer
	logger   *logrus.Entry
}

func newHTTPTransport(config *Config, logger *logrus.Entry) (*httpTransport, error) {
	rt, err := newRoundTripper(config)
	if err != nil {
		return nil, err
	}
	return &httpTransport{
		rt:       rt,
		config:   config,
		observer: config.Observer,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}, nil
}

func (t *httpTransport) do(ctx context.Context, req request) (*rawResponse, error) {
	var body []byte
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, NewError(CodeRequest, "failed to encode request body", err)
		}
		body = data
	}

	requestID := uuid.NewString()
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("groundhogg %s %s", req.method, req.route),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.full", req.url),
			attribute.String("groundhogg.request_id", requestID),
		),
	)
	defer span.End()

	headers := t.headers(ctx, requestID, req.headers)

	t.observer.OnRequestStart(req.method, req.route)
	start := time.Now()
	resp, err := t.rt.roundTrip(ctx, req.method, req.url, headers, body)
	duration := time.Since(start)

	logger := t.logger.WithFields(logrus.Fields{
		"method":     req.method,
		"url":        req.url,
		"request_id": requestID,
		"duration":   duration,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.observer.OnRequestEnd(req.method, req.route, 0, duration, err)
		logger.WithError(err).Debug("Request failed")

		netErr := (&NetworkError{Op: req.method + " " + req.route, Err: err}).ToError()
		netErr.RequestID = requestID
		netErr.WithContext(&ErrorContext{URL: req.url, Method: req.method, Duration: duration})
		return nil, netErr
	}

	resp.requestID = requestID
	span.SetAttributes(attribute.Int("http.response.status_code", resp.status))
	if resp.status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.status))
	}
	t.observer.OnRequestEnd(req.method, req.route, resp.status, duration, nil)
	logger.WithField("status", resp.status).Debug("Request completed")
	return resp, nil
}

// headers merges defaults, config headers and per-call headers, in that
// order, and injects the trace context.
func (t *httpTransport) headers(ctx context.Context, requestID string, extra map[string]string) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "groundhogg-go-sdk/" + Version,
		"X-Request-ID": requestID,
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
	for key, value := range t.config.Headers {
		headers[key] = value
	}
	for key, value := range extra {
		headers[key] = value
	}
	return headers
}

func (t *httpTransport) close() error {
	return t.rt.close()
}

// errorContext describes a completed request for error reporting.
func errorContext(req request) *ErrorContext {
	return &ErrorContext{URL: req.url, Method: req.method}
}
