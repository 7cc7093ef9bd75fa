//go:build wasm

package sdk

import "github.com/birbparty/groundhogg-go/storage"

// defaultBackend prefers localStorage and falls back to memory when the
// browser has storage disabled.
func defaultBackend(config *Config) storage.Backend {
	if config.Storage != nil {
		return config.Storage
	}
	browser, err := storage.NewBrowser()
	if err != nil {
		componentLogger(config.Logger, "session").WithError(err).Debug("localStorage unavailable, using memory")
		return storage.NewMemory()
	}
	return browser
}
