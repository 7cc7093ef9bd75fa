// Package storage provides durable key-value backends for the Groundhogg
// contact session.
//
// A Backend plays the role the browser's localStorage plays for the web SDK:
// it holds small string values under string keys and notifies subscribers
// when another context (another tab, process or host) writes a key.
//
// Available backends:
//   - Memory: in-process, shared by every Session built on the same value
//   - File: a JSON file watched with fsnotify, shared between processes
//   - Redis: GET/SET plus a pub/sub change channel, shared between hosts
//   - Browser: window.localStorage and the "storage" event (wasm builds only)
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage: backend closed")

// Change describes a write observed by a Backend subscription.
type Change struct {
	Key   string `json:"key"`
	Value string `json:"value"`

	// Origin identifies the Backend value that made the write. Empty when
	// the backend cannot tell.
	Origin string `json:"origin,omitempty"`
}

// Originator is implemented by backends whose change feed can carry their
// own writes back to them. Changes stamped with Origin() were written
// through this Backend value and are not news to its callers.
type Originator interface {
	Origin() string
}

// Backend is a string key-value store with change notifications.
//
// Subscribe delivers every observed write, for any key; filtering by key is
// the caller's job. Callbacks may run on a backend-owned goroutine and must
// not block.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Subscribe(fn func(Change)) (cancel func(), err error)
	Close() error
}
