package sdk

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/birbparty/groundhogg-go/storage"
)

// Defaults applied by DefaultConfig and Validate.
const (
	DefaultStorageKey       = "groundhogg_contact_id"
	DefaultAPIVersion       = "v4"
	DefaultAPIPrefix        = "/wp-json/gh"
	DefaultTrackingEndpoint = "/wp-json/nextjs-groundhogg/v1/track"
	DefaultTimeout          = 30 * time.Second
)

// Config holds the configuration for the Groundhogg client and tracker.
// Only Endpoint is required; everything else has a default.
//
// Configuration can be built using the fluent builder pattern:
//
//	config := sdk.DefaultConfig().
//	    WithEndpoint("https://crm.example.com").
//	    WithDebug(true).
//	    WithHeader("X-WP-Nonce", nonce)
//
//	groundhogg, err := sdk.New(config)
type Config struct {
	// Endpoint is the WordPress site URL, e.g. "https://crm.example.com".
	// A trailing slash is stripped.
	Endpoint string

	// Debug enables verbose logging on the default logger.
	Debug bool

	// StorageKey is the key under which the contact id is persisted.
	// Default: "groundhogg_contact_id"
	StorageKey string

	// APIVersion is the REST version segment.
	// Default: "v4"
	APIVersion string

	// APIPrefix is the REST namespace placed before the version.
	// Default: "/wp-json/gh"
	APIPrefix string

	// TrackingEndpoint is the path (or absolute URL) events are posted to.
	// Default: "/wp-json/nextjs-groundhogg/v1/track"
	TrackingEndpoint string

	// Timeout bounds each request, including reading the response body.
	// Default: 30s
	Timeout time.Duration

	// Headers are sent with every request. Typical use is a WordPress
	// nonce or an application password.
	Headers map[string]string

	// TransportConfig holds HTTP transport settings (native builds only).
	TransportConfig TransportConfig

	// Observer receives request and tracking events.
	// If nil, NoopObserver is used.
	Observer Observer

	// Logger is used by every component. If nil a text logger on stderr is
	// created, at debug level when Debug is set and warn level otherwise.
	Logger *logrus.Logger

	// Storage persists the contact id and reports changes made by other
	// processes or tabs. If nil, New uses an in-memory backend (the
	// browser's localStorage under wasm).
	Storage storage.Backend

	// Page supplies url and referrer for tracked events.
	Page PageContext

	// Clock supplies event timestamps. Default: time.Now
	Clock func() time.Time
}

// TransportConfig holds HTTP transport configuration for connection pooling.
//
// Example:
//
//	config.TransportConfig = sdk.TransportConfig{
//	    MaxIdleConns:    20,
//	    MaxConnsPerHost: 4,
//	    IdleConnTimeout: 60 * time.Second,
//	}
type TransportConfig struct {
	// MaxIdleConns controls the maximum number of idle connections
	// across all hosts. Zero means no limit.
	// Default: 100
	MaxIdleConns int

	// MaxConnsPerHost controls the maximum connections per host.
	// Default: 10
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection will remain idle
	// before closing itself.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a Config with every default filled in except
// Endpoint.
func DefaultConfig() *Config {
	return &Config{
		StorageKey:       DefaultStorageKey,
		APIVersion:       DefaultAPIVersion,
		APIPrefix:        DefaultAPIPrefix,
		TrackingEndpoint: DefaultTrackingEndpoint,
		Timeout:          DefaultTimeout,
		TransportConfig: TransportConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Headers:  make(map[string]string),
		Observer: &NoopObserver{},
		Clock:    time.Now,
	}
}

// ConfigFromEnv builds a Config from GROUNDHOGG_* environment variables on
// top of DefaultConfig:
//
//	GROUNDHOGG_ENDPOINT, GROUNDHOGG_DEBUG, GROUNDHOGG_STORAGE_KEY,
//	GROUNDHOGG_API_VERSION, GROUNDHOGG_API_PREFIX,
//	GROUNDHOGG_TRACKING_ENDPOINT, GROUNDHOGG_TIMEOUT
func ConfigFromEnv() *Config {
	c := DefaultConfig()
	c.Endpoint = getEnv("GROUNDHOGG_ENDPOINT", c.Endpoint)
	c.Debug = getEnvBool("GROUNDHOGG_DEBUG", c.Debug)
	c.StorageKey = getEnv("GROUNDHOGG_STORAGE_KEY", c.StorageKey)
	c.APIVersion = getEnv("GROUNDHOGG_API_VERSION", c.APIVersion)
	c.APIPrefix = getEnv("GROUNDHOGG_API_PREFIX", c.APIPrefix)
	c.TrackingEndpoint = getEnv("GROUNDHOGG_TRACKING_ENDPOINT", c.TrackingEndpoint)
	c.Timeout = getEnvDuration("GROUNDHOGG_TIMEOUT", c.Timeout)
	return c
}

// WithEndpoint sets the site URL.
func (c *Config) WithEndpoint(endpoint string) *Config {
	c.Endpoint = endpoint
	return c
}

// WithDebug toggles verbose logging.
func (c *Config) WithDebug(debug bool) *Config {
	c.Debug = debug
	return c
}

// WithStorageKey sets the key used to persist the contact id.
func (c *Config) WithStorageKey(key string) *Config {
	c.StorageKey = key
	return c
}

// WithAPIVersion sets the REST version segment.
func (c *Config) WithAPIVersion(version string) *Config {
	c.APIVersion = version
	return c
}

// WithTrackingEndpoint sets the tracking path or URL.
func (c *Config) WithTrackingEndpoint(endpoint string) *Config {
	c.TrackingEndpoint = endpoint
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithHeader adds a header sent with all requests.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithHeader("X-WP-Nonce", nonce)
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithObserver sets the observer for requests and tracked events.
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithLogger sets the logger used by every component.
func (c *Config) WithLogger(logger *logrus.Logger) *Config {
	c.Logger = logger
	return c
}

// WithStorage sets the persistence backend for the contact id.
func (c *Config) WithStorage(backend storage.Backend) *Config {
	c.Storage = backend
	return c
}

// WithPage sets the page context attached to tracked events.
func (c *Config) WithPage(page PageContext) *Config {
	c.Page = page
	return c
}

// WithClock sets the clock used for event timestamps.
func (c *Config) WithClock(clock func() time.Time) *Config {
	c.Clock = clock
	return c
}

// Validate checks the configuration and fills defaults for missing values.
// It is called by NewClient, NewTracker and New.
func (c *Config) Validate() error {
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if c.Endpoint == "" {
		return NewError(CodeInvalidConfig, "endpoint is required", nil)
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return NewError(CodeInvalidConfig, "invalid endpoint", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return NewError(CodeInvalidConfig, "endpoint must have a scheme and host", nil)
	}

	if c.StorageKey == "" {
		c.StorageKey = DefaultStorageKey
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.APIPrefix == "" {
		c.APIPrefix = DefaultAPIPrefix
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		c.APIPrefix = "/" + c.APIPrefix
	}
	c.APIPrefix = strings.TrimRight(c.APIPrefix, "/")
	if c.TrackingEndpoint == "" {
		c.TrackingEndpoint = DefaultTrackingEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Observer == nil {
		c.Observer = &NoopObserver{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Page == nil {
		c.Page = defaultPage()
	}
	if c.Logger == nil {
		c.Logger = newDefaultLogger(c.Debug)
	}
	return nil
}

// apiURL joins the endpoint, namespace, version and a resource path.
func (c *Config) apiURL(path string) string {
	return fmt.Sprintf("%s%s/%s%s", c.Endpoint, c.APIPrefix, c.APIVersion, path)
}

// trackingURL resolves TrackingEndpoint against Endpoint unless it is
// already absolute.
func (c *Config) trackingURL() string {
	if strings.HasPrefix(c.TrackingEndpoint, "http://") || strings.HasPrefix(c.TrackingEndpoint, "https://") {
		return c.TrackingEndpoint
	}
	path := c.TrackingEndpoint
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.Endpoint + path
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
