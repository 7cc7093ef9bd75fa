package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by Memory.Set when write failures are injected.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// ErrUnavailable is returned by Memory.Get when read failures are injected.
var ErrUnavailable = errors.New("storage: unavailable")

// Memory is an in-process Backend. Every write is announced to every
// subscriber, which makes two sessions over the same Memory behave like two
// tabs of the same origin.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]string
	subs   map[int]func(Change)
	nextID int
	closed bool

	failReads  bool
	failWrites bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]string),
		subs: make(map[int]func(Change)),
	}
}

// Get returns the value stored under key.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrClosed
	}
	if m.failReads {
		return "", ErrUnavailable
	}
	value, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key and notifies subscribers.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.failWrites {
		m.mu.Unlock()
		return ErrQuotaExceeded
	}
	m.data[key] = value
	subs := make([]func(Change), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(Change{Key: key, Value: value})
	}
	return nil
}

// Emit announces a change without storing it. Tests use it to simulate a
// write made by another browsing context.
func (m *Memory) Emit(change Change) {
	m.mu.RLock()
	subs := make([]func(Change), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}

// Subscribe registers fn for every subsequent write.
func (m *Memory) Subscribe(fn func(Change)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}, nil
}

// FailReads makes subsequent Get calls fail, like a blocked localStorage.
func (m *Memory) FailReads(fail bool) {
	m.mu.Lock()
	m.failReads = fail
	m.mu.Unlock()
}

// FailWrites makes subsequent Set calls fail, like an exhausted quota.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	m.failWrites = fail
	m.mu.Unlock()
}

// Close drops all subscribers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]func(Change))
	return nil
}
