package telemetry

import (
	"os"
	"strconv"
)

// Config holds the logging and tracing settings shared by the binaries.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// LogLevel is any level logrus.ParseLevel accepts.
	LogLevel string
	// LogFormat is "json" or "text".
	LogFormat string

	EnableTracing bool
	SamplingRate  float64
	// OTLPEndpoint is a host:port for the gRPC collector. Ignored when
	// TracesFilePath is set.
	OTLPEndpoint string
	// TracesFilePath switches span export to JSON lines on disk.
	TracesFilePath string
}

// NewConfigFromEnv creates a new config from environment variables
func NewConfigFromEnv(serviceName string) *Config {
	return &Config{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", serviceName),
		ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		EnableTracing:  getEnvBool("ENABLE_TRACING", false),
		SamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracesFilePath: os.Getenv("OTEL_TRACES_FILE_PATH"),
	}
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
