//go:build !wasm

package sdk

import "github.com/birbparty/groundhogg-go/storage"

func defaultBackend(config *Config) storage.Backend {
	if config.Storage != nil {
		return config.Storage
	}
	return storage.NewMemory()
}
