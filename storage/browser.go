//go:build wasm

package storage

import (
	"context"
	"fmt"
	"sync"
	"syscall/js"
)

// Browser is a Backend over window.localStorage. Writes made by other tabs
// of the same origin arrive through the window "storage" event; the browser
// never fires that event in the tab that made the write.
type Browser struct {
	local js.Value

	mu        sync.Mutex
	listener  js.Func
	listening bool
	subs      map[int]func(Change)
	nextID    int
	closed    bool
}

// NewBrowser returns a backend bound to the global localStorage.
func NewBrowser() (*Browser, error) {
	local := js.Global().Get("localStorage")
	if !local.Truthy() {
		return nil, fmt.Errorf("localStorage not available")
	}
	return &Browser{
		local: local,
		subs:  make(map[int]func(Change)),
	}, nil
}

// Get reads key. Access can throw (private mode, disabled storage); the
// panic raised by syscall/js is turned into an error.
func (b *Browser) Get(ctx context.Context, key string) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage.getItem: %v", r)
		}
	}()

	v := b.local.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return "", ErrNotFound
	}
	return v.String(), nil
}

// Set writes key. Quota errors thrown by the browser are returned.
func (b *Browser) Set(ctx context.Context, key, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage.setItem: %v", r)
		}
	}()

	b.local.Call("setItem", key, value)
	return nil
}

// Subscribe registers fn for "storage" events.
func (b *Browser) Subscribe(fn func(Change)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if !b.listening {
		b.listener = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) == 0 {
				return nil
			}
			event := args[0]
			key := event.Get("key")
			value := event.Get("newValue")
			if key.IsNull() || value.IsNull() {
				return nil
			}
			b.dispatch(Change{Key: key.String(), Value: value.String()})
			return nil
		})
		js.Global().Call("addEventListener", "storage", b.listener)
		b.listening = true
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

func (b *Browser) dispatch(change Change) {
	b.mu.Lock()
	subs := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

// Close removes the event listener.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.listening {
		js.Global().Call("removeEventListener", "storage", b.listener)
		b.listener.Release()
	}
	return nil
}
