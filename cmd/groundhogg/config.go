package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyEndpoint         = "endpoint"
	cfgKeyStorage          = "storage"
	cfgKeyStorageKey       = "storage_key"
	cfgKeyAPIVersion       = "api_version"
	cfgKeyTrackingEndpoint = "tracking_endpoint"
	cfgKeyTimeout          = "timeout"
	cfgKeyDebug            = "debug"
	cfgKeyHeaders          = "headers"

	storageFile   = "file"
	storageRedis  = "redis"
	storageMemory = "memory"
)

const defaultConfigYAML = `# groundhogg CLI configuration
# Every key can also be set with a GROUNDHOGG_ environment variable or a flag.

# endpoint: https://crm.example.com

# Where the identified contact is kept: file, redis or memory.
storage: file

# headers:
#   X-API-Key: secret
`

// defaultConfigDir returns $GROUNDHOGG_CONFIG_DIR or ~/.groundhogg.
func defaultConfigDir() (string, error) {
	if dir := os.Getenv("GROUNDHOGG_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".groundhogg"), nil
}

// loadConfig reads config.yaml from configDir, writing a commented default
// on first run. Flags win over the environment, which wins over the file.
func loadConfig(configDir string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyStorage, storageFile)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("GROUNDHOGG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		cfgKeyEndpoint:         "endpoint",
		cfgKeyStorage:          "storage",
		cfgKeyStorageKey:       "storage-key",
		cfgKeyAPIVersion:       "api-version",
		cfgKeyTrackingEndpoint: "tracking-endpoint",
		cfgKeyTimeout:          "timeout",
		cfgKeyDebug:            "debug",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileName+"."+configFileType)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
