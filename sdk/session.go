package sdk

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/birbparty/groundhogg-go/storage"
)

// Session holds the current contact id and keeps it in step with other
// processes or tabs sharing the same storage backend.
//
// Storage failures never surface: reads degrade to "no contact" and writes
// leave the in-memory id authoritative. They are logged at debug level.
type Session struct {
	key     string
	backend storage.Backend
	logger  *logrus.Entry

	mu     sync.RWMutex
	id     ContactID
	subs   map[int]func(ContactID)
	nextID int
	cancel func()
}

// NewSession creates a session over backend. It subscribes to the
// backend's change feed immediately; if the backend cannot provide one the
// session still works, it just won't see other writers.
func NewSession(backend storage.Backend, key string, logger *logrus.Logger) *Session {
	if backend == nil {
		backend = storage.NewMemory()
	}
	if key == "" {
		key = DefaultStorageKey
	}
	s := &Session{
		key:     key,
		backend: backend,
		logger:  componentLogger(logger, "session"),
		subs:    make(map[int]func(ContactID)),
	}

	cancel, err := backend.Subscribe(s.handleChange)
	if err != nil {
		s.logger.WithError(err).Debug("Storage change feed unavailable")
	} else {
		s.cancel = cancel
	}
	return s
}

// Key returns the storage key the session owns.
func (s *Session) Key() string {
	return s.key
}

// Restore reads the persisted id. Missing, malformed and non-positive
// values, and backend errors, all report absence. A restored id becomes
// the current one.
func (s *Session) Restore(ctx context.Context) (ContactID, bool) {
	value, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WithError(err).Debug("Failed to restore contact ID")
		}
		return 0, false
	}

	id, err := ParseContactID(value)
	if err != nil {
		s.logger.WithField("value", value).Debug("Ignoring malformed stored contact ID")
		return 0, false
	}

	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return id, true
}

// Set makes id current and persists it. Invalid ids are rejected with
// INVALID_CONTACT_ID and leave the session untouched. A failed write is
// logged and otherwise ignored.
func (s *Session) Set(ctx context.Context, id ContactID) error {
	if !id.Valid() {
		return NewError(CodeInvalidContactID, "invalid contact ID provided", nil)
	}

	s.mu.Lock()
	s.id = id
	s.mu.Unlock()

	if err := s.backend.Set(ctx, s.key, id.String()); err != nil {
		s.logger.WithError(err).WithField("contact_id", int64(id)).Debug("Failed to store contact ID")
	}
	return nil
}

// Current returns the in-memory id.
func (s *Session) Current() (ContactID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.id.Valid()
}

// OnExternalChange registers fn to run whenever another context stores a
// new valid id under this session's key. The returned func unregisters it.
func (s *Session) OnExternalChange(fn func(ContactID)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) handleChange(change storage.Change) {
	if change.Key != s.key || change.Value == "" {
		return
	}
	if o, ok := s.backend.(storage.Originator); ok && change.Origin != "" && change.Origin == o.Origin() {
		return
	}
	id, err := ParseContactID(change.Value)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.id == id {
		s.mu.Unlock()
		return
	}
	s.id = id
	subs := make([]func(ContactID), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.logger.WithField("contact_id", int64(id)).Debug("Contact ID changed in another context")
	for _, fn := range subs {
		fn(id)
	}
}

// Close stops listening for changes. The backend itself is not closed.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
