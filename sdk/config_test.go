package sdk

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Empty(t, config.Endpoint)
	assert.Equal(t, "groundhogg_contact_id", config.StorageKey)
	assert.Equal(t, "v4", config.APIVersion)
	assert.Equal(t, "/wp-json/gh", config.APIPrefix)
	assert.Equal(t, "/wp-json/nextjs-groundhogg/v1/track", config.TrackingEndpoint)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.IsType(t, &NoopObserver{}, config.Observer)
	assert.NotNil(t, config.Headers)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("requires endpoint", func(t *testing.T) {
		err := DefaultConfig().Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("requires scheme and host", func(t *testing.T) {
		err := DefaultConfig().WithEndpoint("crm.example.com").Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("fills defaults", func(t *testing.T) {
		config := &Config{Endpoint: "https://crm.example.com/"}
		require.NoError(t, config.Validate())

		assert.Equal(t, "https://crm.example.com", config.Endpoint)
		assert.Equal(t, DefaultStorageKey, config.StorageKey)
		assert.Equal(t, DefaultAPIVersion, config.APIVersion)
		assert.Equal(t, DefaultAPIPrefix, config.APIPrefix)
		assert.Equal(t, DefaultTrackingEndpoint, config.TrackingEndpoint)
		assert.Equal(t, DefaultTimeout, config.Timeout)
		assert.NotNil(t, config.Observer)
		assert.NotNil(t, config.Clock)
		assert.NotNil(t, config.Page)
		assert.NotNil(t, config.Logger)
	})

	t.Run("default logger follows debug", func(t *testing.T) {
		quiet := &Config{Endpoint: "https://crm.example.com"}
		require.NoError(t, quiet.Validate())
		assert.Equal(t, logrus.WarnLevel, quiet.Logger.GetLevel())

		verbose := &Config{Endpoint: "https://crm.example.com", Debug: true}
		require.NoError(t, verbose.Validate())
		assert.Equal(t, logrus.DebugLevel, verbose.Logger.GetLevel())
	})
}

func TestConfig_URLs(t *testing.T) {
	config := DefaultConfig().WithEndpoint("https://crm.example.com///")
	require.NoError(t, config.Validate())

	assert.Equal(t, "https://crm.example.com/wp-json/gh/v4/contacts/9/tags", config.apiURL("/contacts/9/tags"))
	assert.Equal(t, "https://crm.example.com/wp-json/nextjs-groundhogg/v1/track", config.trackingURL())

	config.TrackingEndpoint = "custom/track"
	assert.Equal(t, "https://crm.example.com/custom/track", config.trackingURL())

	config.TrackingEndpoint = "https://events.example.com/track"
	assert.Equal(t, "https://events.example.com/track", config.trackingURL())
}

func TestConfig_Builders(t *testing.T) {
	observer := NewMetricsCollector()
	config := DefaultConfig().
		WithEndpoint("https://crm.example.com").
		WithDebug(true).
		WithStorageKey("site_contact").
		WithAPIVersion("v3").
		WithTrackingEndpoint("/t").
		WithTimeout(5*time.Second).
		WithHeader("X-WP-Nonce", "n").
		WithObserver(observer)

	assert.True(t, config.Debug)
	assert.Equal(t, "site_contact", config.StorageKey)
	assert.Equal(t, "v3", config.APIVersion)
	assert.Equal(t, "/t", config.TrackingEndpoint)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, "n", config.Headers["X-WP-Nonce"])
	assert.Same(t, observer, config.Observer)

	empty := &Config{}
	empty.WithHeader("A", "b")
	assert.Equal(t, "b", empty.Headers["A"])
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GROUNDHOGG_ENDPOINT", "https://env.example.com")
	t.Setenv("GROUNDHOGG_DEBUG", "true")
	t.Setenv("GROUNDHOGG_STORAGE_KEY", "env_contact")
	t.Setenv("GROUNDHOGG_API_VERSION", "v5")
	t.Setenv("GROUNDHOGG_TRACKING_ENDPOINT", "/env/track")
	t.Setenv("GROUNDHOGG_TIMEOUT", "7s")

	config := ConfigFromEnv()
	assert.Equal(t, "https://env.example.com", config.Endpoint)
	assert.True(t, config.Debug)
	assert.Equal(t, "env_contact", config.StorageKey)
	assert.Equal(t, "v5", config.APIVersion)
	assert.Equal(t, "/env/track", config.TrackingEndpoint)
	assert.Equal(t, 7*time.Second, config.Timeout)

	t.Setenv("GROUNDHOGG_TIMEOUT", "soon")
	t.Setenv("GROUNDHOGG_DEBUG", "maybe")
	config = ConfigFromEnv()
	assert.Equal(t, DefaultTimeout, config.Timeout)
	assert.False(t, config.Debug)
}
