package sdk

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/groundhogg-go/sdk/sdktest"
	"github.com/birbparty/groundhogg-go/storage"
)

func newTestSDK(t *testing.T, config *Config) *SDK {
	t.Helper()
	groundhogg, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { groundhogg.Close() })
	return groundhogg
}

func TestSDK_RestoresIntoClientAndTracker(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	backend := storage.NewMemory()
	require.NoError(t, backend.Set(context.Background(), DefaultStorageKey, "17"))

	groundhogg := newTestSDK(t, testConfig(ts).WithStorage(backend))

	id, ok := groundhogg.Client.ContactID()
	require.True(t, ok)
	assert.Equal(t, ContactID(17), id)

	id, ok = groundhogg.Tracker.ContactID()
	require.True(t, ok)
	assert.Equal(t, ContactID(17), id)
}

func TestSDK_SetContactUpdatesBoth(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	backend := storage.NewMemory()
	groundhogg := newTestSDK(t, testConfig(ts).WithStorage(backend))

	require.NoError(t, groundhogg.SetContact(ts.Context, 23))

	id, _ := groundhogg.Client.ContactID()
	assert.Equal(t, ContactID(23), id)
	id, _ = groundhogg.Tracker.ContactID()
	assert.Equal(t, ContactID(23), id)

	stored, err := backend.Get(context.Background(), DefaultStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "23", stored)

	err = groundhogg.SetContact(ts.Context, 0)
	assert.ErrorIs(t, err, ErrInvalidContactID)
	id, _ = groundhogg.ContactID()
	assert.Equal(t, ContactID(23), id)
	id, _ = groundhogg.Tracker.ContactID()
	assert.Equal(t, ContactID(23), id)
}

func TestSDK_TrackerFollowsOtherContexts(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	backend := storage.NewMemory()
	groundhogg := newTestSDK(t, testConfig(ts).WithStorage(backend))

	// Another process sharing the backend identifies the visitor.
	other := NewSession(backend, DefaultStorageKey, quietLogger())
	require.NoError(t, other.Set(context.Background(), 64))

	id, ok := groundhogg.ContactID()
	require.True(t, ok)
	assert.Equal(t, ContactID(64), id)

	id, ok = groundhogg.Tracker.ContactID()
	require.True(t, ok)
	assert.Equal(t, ContactID(64), id)

	_, err := groundhogg.Tracker.PageView(ts.Context, nil)
	require.NoError(t, err)
	last, _ := ts.Server.LastRequest()
	assert.Equal(t, float64(64), last.JSON()["contact_id"])
}

func TestSDK_CreateContactPointsTracker(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	groundhogg := newTestSDK(t, testConfig(ts))

	resp, err := groundhogg.CreateContact(ts.Context, Contact{Email: "new@example.com"})
	require.NoError(t, err)

	id, ok := groundhogg.Tracker.ContactID()
	require.True(t, ok)
	assert.Equal(t, resp.Data.ID, id)
}

func TestSDK_CloseStopsFollowing(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	backend := storage.NewMemory()
	groundhogg, err := New(testConfig(ts).WithStorage(backend))
	require.NoError(t, err)
	require.NoError(t, groundhogg.Close())

	backend.Emit(storage.Change{Key: DefaultStorageKey, Value: "5"})
	_, ok := groundhogg.Tracker.ContactID()
	assert.False(t, ok)

	_, err = groundhogg.Client.ListContacts(ts.Context)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSDK_DefaultsToMemoryStorage(t *testing.T) {
	ts := sdktest.NewTestSuite(t)
	config := testConfig(ts)
	config.Storage = nil

	groundhogg := newTestSDK(t, config)
	require.NoError(t, groundhogg.SetContact(ts.Context, 2))

	ts.Server.SeedContact(map[string]any{"email": "one@example.com"})
	ts.Server.SeedContact(map[string]any{"email": "two@example.com"})

	resp, err := groundhogg.Client.GetContact(ts.Context)
	require.NoError(t, err)
	assert.Equal(t, "two@example.com", resp.Data.Email)

	last, _ := ts.Server.LastRequest()
	assert.Equal(t, http.MethodGet, last.Method)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
