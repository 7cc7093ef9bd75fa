package stub

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the API double configuration
type Config struct {
	Host string
	Port int

	// APIBase is the REST prefix, e.g. /wp-json/gh/v4.
	APIBase      string
	TrackingPath string

	// APIKey guards the REST routes when set. Tracking stays public.
	APIKey       string
	AllowOrigins string

	RequestTimeout  int
	ShutdownTimeout int

	EventQueueSize int
	EventWorkers   int

	NATS NATSConfig
}

// NATSConfig holds the tracked-event forwarding settings. An empty URL
// disables forwarding.
type NATSConfig struct {
	URL           string
	Name          string
	User          string
	Password      string
	StreamName    string
	SubjectPrefix string
}

// DefaultConfig returns the settings LoadConfig starts from.
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		APIBase:         "/wp-json/gh/v4",
		TrackingPath:    "/wp-json/nextjs-groundhogg/v1/track",
		AllowOrigins:    "*",
		RequestTimeout:  30,
		ShutdownTimeout: 10,
		EventQueueSize:  1000,
		EventWorkers:    2,
		NATS: NATSConfig{
			Name:          "groundhogg-stub",
			StreamName:    "GROUNDHOGG_EVENTS",
			SubjectPrefix: "groundhogg.events",
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Port},
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"EVENT_QUEUE_SIZE", &cfg.EventQueueSize},
		{"EVENT_WORKERS", &cfg.EventWorkers},
	}
	for _, field := range ints {
		value := os.Getenv(field.key)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", field.key, err)
		}
		*field.dst = n
	}

	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.APIBase = "/" + strings.Trim(getEnvOrDefault("API_BASE", cfg.APIBase), "/")
	cfg.TrackingPath = "/" + strings.Trim(getEnvOrDefault("TRACKING_PATH", cfg.TrackingPath), "/")
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowOrigins = getEnvOrDefault("ALLOW_ORIGINS", cfg.AllowOrigins)

	cfg.NATS.URL = os.Getenv("NATS_URL")
	cfg.NATS.Name = getEnvOrDefault("NATS_CLIENT_NAME", cfg.NATS.Name)
	cfg.NATS.User = os.Getenv("NATS_USER")
	cfg.NATS.Password = os.Getenv("NATS_PASSWORD")
	cfg.NATS.StreamName = getEnvOrDefault("NATS_STREAM", cfg.NATS.StreamName)
	cfg.NATS.SubjectPrefix = getEnvOrDefault("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)

	if cfg.EventWorkers < 1 {
		return nil, fmt.Errorf("invalid EVENT_WORKERS: must be at least 1")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
