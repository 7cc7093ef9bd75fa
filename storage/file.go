//go:build !wasm

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileName is the name of the JSON document a File backend keeps in its
// directory.
const FileName = "session.json"

// File is a Backend persisted as a single JSON object on disk. Processes
// sharing the directory see each other's writes through fsnotify, the way
// tabs of one origin share localStorage.
type File struct {
	dir  string
	path string

	mu       sync.Mutex
	snapshot map[string]string
	subs     map[int]func(Change)
	nextID   int
	watcher  *fsnotify.Watcher
	done     chan struct{}
	closed   bool
}

// NewFile opens (creating if needed) a file backend rooted at dir.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	f := &File{
		dir:  dir,
		path: filepath.Join(dir, FileName),
		subs: make(map[int]func(Change)),
		done: make(chan struct{}),
	}

	snapshot, err := f.load()
	if err != nil {
		return nil, err
	}
	f.snapshot = snapshot
	return f, nil
}

// Path returns the location of the backing JSON document.
func (f *File) Path() string {
	return f.path
}

// Get reads key from disk, picking up writes made by other processes.
func (f *File) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", ErrClosed
	}
	data, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set writes key to disk. The local snapshot is updated first so this
// backend's own watcher does not report the write back to its subscribers.
func (f *File) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	data, err := f.load()
	if err != nil {
		return err
	}
	data[key] = value

	if err := writeJSONAtomic(f.path, data); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	f.snapshot = data
	return nil
}

// Subscribe registers fn for writes made through other File values (or
// other processes) sharing the same directory. The watcher starts with the
// first subscription.
func (f *File) Subscribe(fn func(Change)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}
	if f.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Add(f.dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", f.dir, err)
		}
		f.watcher = w
		go f.watch(w)
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = fn

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}, nil
}

// Close stops the watcher.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	if f.watcher != nil {
		return f.watcher.Close()
	}
	return nil
}

func (f *File) watch(w *fsnotify.Watcher) {
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				f.refresh()
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// refresh diffs the document on disk against the last snapshot and
// announces every key whose value changed.
func (f *File) refresh() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	data, err := f.load()
	if err != nil {
		f.mu.Unlock()
		return
	}

	var changes []Change
	for key, value := range data {
		if old, ok := f.snapshot[key]; !ok || old != value {
			changes = append(changes, Change{Key: key, Value: value})
		}
	}
	f.snapshot = data

	subs := make([]func(Change), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, change := range changes {
		for _, fn := range subs {
			fn(change)
		}
	}
}

func (f *File) load() (map[string]string, error) {
	data := make(map[string]string)

	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return data, nil
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err == nil {
		return nil
	}

	defer os.Remove(tmp)

	if runtime.GOOS == "windows" {
		_ = os.Remove(path)
		return os.Rename(tmp, path)
	}
	return os.Rename(tmp, path)
}
