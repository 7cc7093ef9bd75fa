package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/groundhogg-go/sdk"
	"github.com/birbparty/groundhogg-go/sdk/sdktest"
)

type harness struct {
	t         *testing.T
	suite     *sdktest.TestSuite
	configDir string
}

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, suite: sdktest.NewTestSuite(t), configDir: t.TempDir()}
}

// exec runs one CLI invocation against the mock server, sharing the
// config dir (and so the file session) across calls.
func (h *harness) exec(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--endpoint", h.suite.BaseURL, "--config-dir", h.configDir}, args...)
	err := run(h.suite.Context, full, &out, &errOut)
	return out.String(), errOut.String(), err
}

func (h *harness) execJSON(v any, args ...string) {
	h.t.Helper()
	out, _, err := h.exec(append(args, "--json")...)
	require.NoError(h.t, err)
	require.NoError(h.t, json.Unmarshal([]byte(out), v), out)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out, &bytes.Buffer{}))
	assert.Equal(t, "groundhogg v"+sdk.Version+"\n", out.String())
}

func TestMissingEndpoint(t *testing.T) {
	err := run(context.Background(), []string{"--config-dir", t.TempDir(), "contact", "list"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, sdk.ErrInvalidConfig)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestWritesDefaultConfig(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.exec("session", "show")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(h.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "storage: file")
}

func TestEndpointFromEnvironment(t *testing.T) {
	suite := sdktest.NewTestSuite(t)
	t.Setenv("GROUNDHOGG_ENDPOINT", suite.BaseURL)

	var out bytes.Buffer
	err := run(suite.Context, []string{"--config-dir", t.TempDir(), "contact", "list", "--json"}, &out, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, suite.Server.GetRequestCount())
}

func TestContactLifecycle(t *testing.T) {
	h := newHarness(t)

	var created map[string]any
	h.execJSON(&created, "contact", "create", "--email", "jane@example.com", "--first-name", "Jane", "--field", "score=7")
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "jane@example.com", created["email"])

	last, ok := h.suite.Server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, float64(7), last.JSON()["score"])

	// A fresh invocation picks the contact up from the session file.
	var current map[string]any
	h.execJSON(&current, "contact", "get")
	assert.Equal(t, "Jane", current["firstName"])

	var updated map[string]any
	h.execJSON(&updated, "contact", "update", "--last-name", "Doe")
	assert.Equal(t, "Doe", updated["lastName"])

	var tagged map[string]any
	h.execJSON(&tagged, "tags", "add", "4", "9")
	assert.Equal(t, []any{"4", "9"}, tagged["tags"])

	var found map[string]any
	h.execJSON(&found, "contact", "find", "--email", "jane@example.com")
	assert.Equal(t, float64(1), found["id"])

	out, _, err := h.exec("contact", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Jane Doe")
}

func TestContactCreateHumanOutput(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.exec("contact", "create", "--email", "sam@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Contact created.")
	assert.Contains(t, out, "sam@example.com")
}

func TestNotes(t *testing.T) {
	h := newHarness(t)
	h.suite.Server.SeedContact(map[string]any{"email": "a@example.com"})
	_, _, err := h.exec("session", "set", "1")
	require.NoError(t, err)

	out, _, err := h.exec("notes", "add", "Asked", "for", "a", "demo", "--type", "call")
	require.NoError(t, err)
	assert.Contains(t, out, "Note 1 added")

	last, ok := h.suite.Server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "Asked for a demo", last.JSON()["content"])
	assert.Equal(t, "call", last.JSON()["type"])

	out, _, err = h.exec("notes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Asked for a demo")
}

func TestSession(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.exec("session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No current contact")

	_, _, err = h.exec("session", "set", "42")
	require.NoError(t, err)

	var view sessionView
	h.execJSON(&view, "session", "show")
	assert.Equal(t, sdk.ContactID(42), view.ContactID)
	assert.Equal(t, sdk.DefaultStorageKey, view.Key)
	assert.Equal(t, storageFile, view.Storage)

	_, _, err = h.exec("session", "set", "0")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
	assert.Equal(t, 0, h.suite.Server.GetRequestCount())
}

func TestTrack(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.exec("session", "set", "7")
	require.NoError(t, err)

	out, _, err := h.exec("--url", "https://shop.example.com/cart", "track", "add-to-cart", "sku-1", "--quantity", "3", "--data", "coupon=SPRING")
	require.NoError(t, err)
	assert.Contains(t, out, "Tracked add_to_cart")

	last, ok := h.suite.Server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, sdktest.TrackingPath, last.Path)
	payload := last.JSON()
	assert.Equal(t, "add_to_cart", payload["event"])
	assert.Equal(t, float64(7), payload["contact_id"])
	data := payload["data"].(map[string]any)
	assert.Equal(t, "sku-1", data["product_id"])
	assert.Equal(t, float64(3), data["quantity"])
	assert.Equal(t, "SPRING", data["coupon"])
	assert.Equal(t, "https://shop.example.com/cart", data["url"])

	var resp map[string]any
	h.execJSON(&resp, "track", "event", "webinar_signup", "--data", "seats=2")
	assert.Equal(t, true, resp["success"])
	last, _ = h.suite.Server.LastRequest()
	assert.Equal(t, "webinar_signup", last.JSON()["event"])
	assert.Equal(t, float64(2), last.JSON()["data"].(map[string]any)["seats"])
}

func TestUserErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
	}{
		{"create without email", []string{"contact", "create", "--first-name", "x"}},
		{"update with no changes", []string{"contact", "update"}},
		{"find without criteria", []string{"contact", "find"}},
		{"bad tag id", []string{"tags", "add", "abc"}},
		{"zero tag id", []string{"tags", "remove", "0"}},
		{"bad amount", []string{"track", "purchase", "order-1", "lots"}},
		{"unknown storage", []string{"--storage", "s3", "contact", "list"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.exec(tt.args...)
			require.Error(t, err)
			assert.Equal(t, exitUserError, exitCode(err))
		})
	}
	assert.Equal(t, 0, h.suite.Server.GetRequestCount())
}

func TestAPIErrorsAreSystemErrors(t *testing.T) {
	h := newHarness(t)
	h.suite.Server.WithErrorResponse("GET "+sdktest.APIBase+"/contacts", 500, "internal_error", "boom")

	_, _, err := h.exec("contact", "list")
	require.Error(t, err)
	assert.Equal(t, exitSysError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(userErrorf("bad")))
	assert.Equal(t, exitUserError, exitCode(sdk.ErrInvalidContactID))
	assert.Equal(t, exitSysError, exitCode(errors.New("connection refused")))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, float64(19.99), parseValue("19.99"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "SPRING", parseValue("SPRING"))
	assert.Equal(t, map[string]any{"a": float64(1)}, parseValue(`{"a":1}`))
}
