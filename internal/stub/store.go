package stub

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// ErrContactNotFound is returned for unknown contact ids.
var ErrContactNotFound = errors.New("contact not found")

const noteDateLayout = "2006-01-02 15:04:05"

// Store is the in-memory CRM behind the API double. Every method returns
// copies so callers can encode them without holding the lock.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	contacts map[int64]map[string]any
	tags     map[int64][]int64
	notes    map[int64][]map[string]any
	clock    func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nextID:   1,
		contacts: make(map[int64]map[string]any),
		tags:     make(map[int64][]int64),
		notes:    make(map[int64][]map[string]any),
		clock:    time.Now,
	}
}

// Create inserts a contact and returns it with its assigned id.
func (s *Store) Create(fields map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	contact := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		if k != "id" && k != "tags" {
			contact[k] = v
		}
	}
	contact["id"] = id
	s.contacts[id] = contact
	return s.viewLocked(id)
}

// Get returns one contact.
func (s *Store) Get(id int64) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.contacts[id]; !ok {
		return nil, ErrContactNotFound
	}
	return s.viewLocked(id), nil
}

// Update merges changes into a contact. id and tags cannot be changed here.
func (s *Store) Update(id int64, changes map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}
	for k, v := range changes {
		if k != "id" && k != "tags" {
			contact[k] = v
		}
	}
	return s.viewLocked(id), nil
}

// List returns contacts in creation order, filtered by exact email and
// phone when those are non-empty.
func (s *Store) List(email, phone string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, 0, len(s.contacts))
	for id := int64(1); id < s.nextID; id++ {
		contact, ok := s.contacts[id]
		if !ok {
			continue
		}
		if email != "" && contact["email"] != email {
			continue
		}
		if phone != "" && contact["phone"] != phone {
			continue
		}
		out = append(out, s.viewLocked(id))
	}
	return out
}

// AddTags applies tags to a contact, ignoring ones it already has.
func (s *Store) AddTags(id int64, tagIDs []int64) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		return nil, ErrContactNotFound
	}
	for _, tag := range tagIDs {
		if !slices.Contains(s.tags[id], tag) {
			s.tags[id] = append(s.tags[id], tag)
		}
	}
	return s.viewLocked(id), nil
}

// RemoveTags strips tags from a contact.
func (s *Store) RemoveTags(id int64, tagIDs []int64) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		return nil, ErrContactNotFound
	}
	s.tags[id] = slices.DeleteFunc(s.tags[id], func(tag int64) bool {
		return slices.Contains(tagIDs, tag)
	})
	return s.viewLocked(id), nil
}

// AddNote appends a note to a contact.
func (s *Store) AddNote(id int64, content, noteType string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		return nil, ErrContactNotFound
	}
	if noteType == "" {
		noteType = "note"
	}
	note := map[string]any{
		"id":           int64(len(s.notes[id]) + 1),
		"contact_id":   id,
		"content":      content,
		"type":         noteType,
		"date_created": s.clock().UTC().Format(noteDateLayout),
	}
	s.notes[id] = append(s.notes[id], note)
	return maps.Clone(note), nil
}

// Notes lists a contact's notes, oldest first.
func (s *Store) Notes(id int64) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.contacts[id]; !ok {
		return nil, ErrContactNotFound
	}
	out := make([]map[string]any, 0, len(s.notes[id]))
	for _, note := range s.notes[id] {
		out = append(out, maps.Clone(note))
	}
	return out, nil
}

// Len returns the number of contacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

func (s *Store) viewLocked(id int64) map[string]any {
	view := maps.Clone(s.contacts[id])
	tags := slices.Clone(s.tags[id])
	if tags == nil {
		tags = []int64{}
	}
	view["tags"] = tags
	return view
}
