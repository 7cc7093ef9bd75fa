// Package sdktest provides a fake Groundhogg server for tests.
package sdktest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Default paths served by MockServer.
const (
	APIBase      = "/wp-json/gh/v4"
	TrackingPath = "/wp-json/nextjs-groundhogg/v1/track"
)

// MockServer is an httptest server that behaves like the Groundhogg REST
// API and tracking endpoint, backed by an in-memory contact list. Handlers
// registered with RegisterHandler take precedence over the built-in routes.
type MockServer struct {
	*httptest.Server
	mu           sync.RWMutex
	handlers     map[string]HandlerFunc
	requestCount atomic.Int32
	requests     []RecordedRequest

	contacts map[int64]map[string]any
	tags     map[int64][]int64
	notes    map[int64][]map[string]any
	nextID   int64
}

// HandlerFunc is a custom handler function type
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (int, interface{})

// RecordedRequest stores information about a received request
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
	Time    time.Time
}

// JSON decodes the recorded body into a generic map.
func (r RecordedRequest) JSON() map[string]any {
	var out map[string]any
	_ = json.Unmarshal(r.Body, &out)
	return out
}

// NewMockServer creates a new mock server
func NewMockServer() *MockServer {
	ms := &MockServer{
		handlers: make(map[string]HandlerFunc),
		requests: make([]RecordedRequest, 0),
		contacts: make(map[int64]map[string]any),
		tags:     make(map[int64][]int64),
		notes:    make(map[int64][]map[string]any),
		nextID:   1,
	}
	ms.Server = httptest.NewServer(http.HandlerFunc(ms.handleRequest))
	return ms
}

// RegisterHandler registers a handler for "METHOD /path". A pattern ending
// in "/" matches every path with that prefix.
func (ms *MockServer) RegisterHandler(pattern string, handler HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[pattern] = handler
}

// SeedContact stores a contact as if it had been created, returning its id.
func (ms *MockServer) SeedContact(fields map[string]any) int64 {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.insertLocked(fields)
}

func (ms *MockServer) insertLocked(fields map[string]any) int64 {
	id := ms.nextID
	ms.nextID++
	contact := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		contact[k] = v
	}
	contact["id"] = id
	ms.contacts[id] = contact
	return id
}

// handleRequest records the request then routes it
func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, 0)
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header.Clone(),
		Body:    body,
		Time:    time.Now(),
	})
	ms.mu.Unlock()
	ms.requestCount.Add(1)

	pattern := r.Method + " " + r.URL.Path
	ms.mu.RLock()
	handler, exact := ms.handlers[pattern]
	if !exact {
		for p, h := range ms.handlers {
			if strings.HasSuffix(p, "/") && strings.HasPrefix(pattern, p) {
				handler = h
				break
			}
		}
	}
	ms.mu.RUnlock()

	if handler == nil {
		handler = ms.route
	}

	status, response := handler(w, r)
	if status == 0 {
		// handler wrote the response itself
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if response != nil {
		json.NewEncoder(w).Encode(response)
	}
}

// route serves the built-in fake API.
func (ms *MockServer) route(w http.ResponseWriter, r *http.Request) (int, interface{}) {
	if r.URL.Path == TrackingPath && r.Method == http.MethodPost {
		return http.StatusOK, map[string]any{"success": true}
	}

	rest, ok := strings.CutPrefix(r.URL.Path, APIBase+"/contacts")
	if !ok {
		return notFound("rest_no_route", "No route was found matching the URL and request method.")
	}

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			return ms.list(r)
		case http.MethodPost:
			return ms.create(r)
		}
		return notFound("rest_no_route", "No route was found matching the URL and request method.")
	}

	parts := strings.Split(strings.TrimPrefix(rest, "/"), "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return notFound("rest_no_route", "No route was found matching the URL and request method.")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	contact, exists := ms.contacts[id]
	if !exists {
		return notFound("no_contact", "Contact not found.")
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		return http.StatusOK, envelope(contact, "")
	case len(parts) == 1 && r.Method == http.MethodPatch:
		var changes map[string]any
		if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
			return badRequest(err)
		}
		for k, v := range changes {
			if k != "id" {
				contact[k] = v
			}
		}
		return http.StatusOK, envelope(contact, "Contact updated.")
	case len(parts) == 2 && parts[1] == "tags":
		var body struct {
			TagIDs []int64 `json:"tag_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return badRequest(err)
		}
		switch r.Method {
		case http.MethodPost:
			ms.tags[id] = append(ms.tags[id], body.TagIDs...)
		case http.MethodDelete:
			ms.tags[id] = without(ms.tags[id], body.TagIDs)
		default:
			return notFound("rest_no_route", "No route was found matching the URL and request method.")
		}
		contact["tags"] = append([]int64{}, ms.tags[id]...)
		return http.StatusOK, envelope(contact, "")
	case len(parts) == 2 && parts[1] == "notes":
		switch r.Method {
		case http.MethodGet:
			return http.StatusOK, envelope(ms.notes[id], "")
		case http.MethodPost:
			var note map[string]any
			if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
				return badRequest(err)
			}
			note["id"] = len(ms.notes[id]) + 1
			note["contact_id"] = id
			ms.notes[id] = append(ms.notes[id], note)
			return http.StatusCreated, envelope(note, "Note added.")
		}
	}
	return notFound("rest_no_route", "No route was found matching the URL and request method.")
}

func (ms *MockServer) create(r *http.Request) (int, interface{}) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return badRequest(err)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	id := ms.insertLocked(fields)
	return http.StatusCreated, envelope(ms.contacts[id], "Contact created.")
}

func (ms *MockServer) list(r *http.Request) (int, interface{}) {
	email := r.Header.Get("X-Search-Email")
	phone := r.Header.Get("X-Search-Phone")

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]map[string]any, 0, len(ms.contacts))
	for id := int64(1); id < ms.nextID; id++ {
		contact, ok := ms.contacts[id]
		if !ok {
			continue
		}
		if email != "" && contact["email"] != email {
			continue
		}
		if phone != "" && contact["phone"] != phone {
			continue
		}
		out = append(out, contact)
	}
	return http.StatusOK, envelope(out, "")
}

func envelope(data any, message string) map[string]any {
	out := map[string]any{"success": true, "data": data}
	if message != "" {
		out["message"] = message
	}
	return out
}

func notFound(code, message string) (int, interface{}) {
	return http.StatusNotFound, map[string]any{"code": code, "message": message}
}

func badRequest(err error) (int, interface{}) {
	return http.StatusBadRequest, map[string]any{"code": "rest_invalid_json", "message": err.Error()}
}

func without(ids, remove []int64) []int64 {
	drop := make(map[int64]bool, len(remove))
	for _, id := range remove {
		drop[id] = true
	}
	out := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

// GetRequestCount returns the total number of requests received
func (ms *MockServer) GetRequestCount() int {
	return int(ms.requestCount.Load())
}

// GetRequests returns all recorded requests
func (ms *MockServer) GetRequests() []RecordedRequest {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([]RecordedRequest, len(ms.requests))
	copy(result, ms.requests)
	return result
}

// LastRequest returns the most recent request, or false if there is none.
func (ms *MockServer) LastRequest() (RecordedRequest, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if len(ms.requests) == 0 {
		return RecordedRequest{}, false
	}
	return ms.requests[len(ms.requests)-1], true
}

// Reset clears all recorded requests
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.requestCount.Store(0)
	ms.requests = ms.requests[:0]
}

// WithErrorResponse makes pattern fail with a WordPress-style error body.
func (ms *MockServer) WithErrorResponse(pattern string, statusCode int, code, message string) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return statusCode, map[string]any{
			"code":    code,
			"message": message,
			"data":    map[string]any{"status": statusCode},
		}
	})
}

// WithRawResponse makes pattern answer with a fixed status and a raw,
// usually non-JSON, body.
func (ms *MockServer) WithRawResponse(pattern string, statusCode int, body string) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(statusCode)
		_, _ = io.WriteString(w, body)
		return 0, nil
	})
}

// WithDelayedResponse sets up a handler that delays before responding
func (ms *MockServer) WithDelayedResponse(pattern string, delay time.Duration, handler HandlerFunc) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		time.Sleep(delay)
		return handler(w, r)
	})
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	if ms.Server != nil {
		ms.Server.Close()
	}
}

// TestSuite bundles a mock server with a bounded context.
type TestSuite struct {
	T          *testing.T
	Server     *MockServer
	BaseURL    string
	Context    context.Context
	CancelFunc context.CancelFunc
}

// NewTestSuite starts a mock server and registers cleanup with t.
func NewTestSuite(t *testing.T) *TestSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	server := NewMockServer()

	ts := &TestSuite{
		T:          t,
		Server:     server,
		BaseURL:    server.URL,
		Context:    ctx,
		CancelFunc: cancel,
	}
	t.Cleanup(ts.Cleanup)
	return ts
}

// Cleanup cleans up test resources
func (ts *TestSuite) Cleanup() {
	if ts.CancelFunc != nil {
		ts.CancelFunc()
	}
	if ts.Server != nil {
		ts.Server.Close()
	}
}
