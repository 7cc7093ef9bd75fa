package stub

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a testify mock of Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *TrackedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func quietEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestServer(t *testing.T, cfg *Config, publisher Publisher) *Server {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	srv := NewWithPublisher(cfg, publisher, NewMetrics(prometheus.NewRegistry()), quietEntry())
	t.Cleanup(func() { srv.events.Shutdown() })
	return srv
}

type apiResponse struct {
	Status int
	Header http.Header
	Body   map[string]any
	Raw    []byte
}

func (r apiResponse) Data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

func (r apiResponse) List() []any {
	list, _ := r.Body["data"].([]any)
	return list
}

func doRequest(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := apiResponse{Status: resp.StatusCode, Header: resp.Header, Raw: raw}
	_ = json.Unmarshal(raw, &out.Body)
	return out
}
