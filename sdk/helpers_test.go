package sdk

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/groundhogg-go/sdk/sdktest"
	"github.com/birbparty/groundhogg-go/storage"
)

var fixedTime = time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testConfig points a config at ts with an in-memory backend, a fixed clock
// and a fixed page.
func testConfig(ts *sdktest.TestSuite) *Config {
	return DefaultConfig().
		WithEndpoint(ts.BaseURL).
		WithLogger(quietLogger()).
		WithStorage(storage.NewMemory()).
		WithClock(func() time.Time { return fixedTime }).
		WithPage(Page{URL: "https://shop.example.com/pricing", Referrer: "https://search.example.com/"})
}

func newTestClient(t *testing.T, ts *sdktest.TestSuite, config *Config) Client {
	t.Helper()
	if config == nil {
		config = testConfig(ts)
	}
	client, err := NewClient(config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}
