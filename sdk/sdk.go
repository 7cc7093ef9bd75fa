package sdk

import (
	"context"
	"errors"
)

// SDK wires a Client and a Tracker to one Session so the contact id stays
// consistent between them, including when another process or tab changes
// it.
//
// Example:
//
//	groundhogg, err := sdk.New(sdk.DefaultConfig().
//	    WithEndpoint("https://crm.example.com").
//	    WithStorage(fileBackend))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer groundhogg.Close()
//
//	if err := groundhogg.SetContact(ctx, 42); err != nil {
//	    log.Fatal(err)
//	}
//	_, _ = groundhogg.Tracker.PageView(ctx, nil)
type SDK struct {
	Client  Client
	Tracker *Tracker
	Session *Session

	unsubscribe func()
}

// New validates config, restores the persisted contact and builds the
// Client and Tracker around it.
func New(config *Config) (*SDK, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	session := NewSession(defaultBackend(config), config.StorageKey, config.Logger)
	restored, ok := session.Restore(context.Background())

	client, err := NewClient(config, session)
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	tracker, err := NewTracker(config)
	if err != nil {
		_ = client.Close()
		_ = session.Close()
		return nil, err
	}
	if ok {
		_ = tracker.SetContact(restored)
	}

	unsubscribe := session.OnExternalChange(func(id ContactID) {
		_ = tracker.SetContact(id)
	})

	return &SDK{
		Client:      client,
		Tracker:     tracker,
		Session:     session,
		unsubscribe: unsubscribe,
	}, nil
}

// SetContact makes id current for both the client and the tracker.
func (s *SDK) SetContact(ctx context.Context, id ContactID) error {
	if !id.Valid() {
		return NewError(CodeInvalidContactID, "invalid contact ID provided", nil)
	}
	if err := s.Client.SetContact(ctx, id); err != nil {
		return err
	}
	return s.Tracker.SetContact(id)
}

// CreateContact creates a contact and points the tracker at it.
func (s *SDK) CreateContact(ctx context.Context, contact Contact) (*Response[*Contact], error) {
	resp, err := s.Client.CreateContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	if id, ok := s.Client.ContactID(); ok {
		_ = s.Tracker.SetContact(id)
	}
	return resp, nil
}

// ContactID returns the current contact.
func (s *SDK) ContactID() (ContactID, bool) {
	return s.Session.Current()
}

// Close stops following external changes and releases the client,
// tracker and session. The storage backend is left open.
func (s *SDK) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return errors.Join(s.Client.Close(), s.Tracker.Close(), s.Session.Close())
}
