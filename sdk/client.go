package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
)

// Client is the Groundhogg contacts API bound to the session's current
// contact. All methods are safe for concurrent use.
//
// Operations that act on "the" contact (update, tags, notes) fail with
// NO_CONTACT_ERROR, without touching the network, until a contact has been
// identified through SetContact, CreateContact or a restored session.
//
// Example:
//
//	client, err := sdk.NewClient(sdk.DefaultConfig().WithEndpoint(site), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	ctx := context.Background()
//	resp, err := client.CreateContact(ctx, sdk.Contact{Email: "jane@example.com"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Printf("created contact %d", resp.Data.ID)
//
//	// The new contact is now current.
//	_, err = client.AddTags(ctx, 4, 9)
type Client interface {
	// CreateContact creates a contact. On success the returned id becomes
	// the current contact and is persisted.
	CreateContact(ctx context.Context, contact Contact) (*Response[*Contact], error)

	// UpdateContact patches the current contact with the non-zero fields
	// of changes.
	UpdateContact(ctx context.Context, changes Contact) (*Response[*Contact], error)

	// GetContact fetches the current contact. With no current contact it
	// returns a successful response with nil Data and sends nothing.
	GetContact(ctx context.Context) (*Response[*Contact], error)

	// ListContacts fetches the contact collection.
	ListContacts(ctx context.Context) (*Response[[]Contact], error)

	// AddTags applies tags to the current contact.
	AddTags(ctx context.Context, tagIDs ...int64) (*Response[*Contact], error)

	// RemoveTags removes tags from the current contact.
	RemoveTags(ctx context.Context, tagIDs ...int64) (*Response[*Contact], error)

	// AddNote attaches a note. An empty noteType means "note".
	AddNote(ctx context.Context, content, noteType string) (*Response[*Note], error)

	// ListNotes fetches the current contact's notes.
	ListNotes(ctx context.Context) (*Response[[]Note], error)

	// FindByEmail returns the first contact with the given email, or nil
	// Data when there is none.
	FindByEmail(ctx context.Context, email string) (*Response[*Contact], error)

	// FindByPhone returns the first contact with the given phone number, or
	// nil Data when there is none.
	FindByPhone(ctx context.Context, phone string) (*Response[*Contact], error)

	// SetContact makes id current and persists it.
	SetContact(ctx context.Context, id ContactID) error

	// ContactID returns the current contact, if any.
	ContactID() (ContactID, bool)

	// Session returns the session backing this client.
	Session() *Session

	// Close releases idle connections. A session created by NewClient is
	// closed with it. Close is safe to call multiple times.
	Close() error
}

// client implements Client
type client struct {
	transport   *httpTransport
	config      *Config
	session     *Session
	ownsSession bool
	logger      *logrus.Entry

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a Client. When session is nil a new one is built from
// config.Storage and restored from it; that session is owned by the client.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithEndpoint("https://crm.example.com").
//	    WithHeader("X-WP-Nonce", nonce)
//	client, err := sdk.NewClient(config, nil)
func NewClient(config *Config, session *Session) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := componentLogger(config.Logger, "client")
	transport, err := newHTTPTransport(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	owns := false
	if session == nil {
		session = NewSession(defaultBackend(config), config.StorageKey, config.Logger)
		session.Restore(context.Background())
		owns = true
	}

	return &client{
		transport:   transport,
		config:      config,
		session:     session,
		ownsSession: owns,
		logger:      logger,
	}, nil
}

// CreateContact creates a contact and makes it current
func (c *client) CreateContact(ctx context.Context, contact Contact) (*Response[*Contact], error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	resp, err := call[*Contact](ctx, c, http.MethodPost, "/contacts", "/contacts", contact, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeCreateContact, "Failed to create contact")
	}

	if resp.Data != nil && resp.Data.ID.Valid() {
		if err := c.session.Set(ctx, resp.Data.ID); err != nil {
			return nil, err
		}
	} else {
		c.logger.Debug("Create response carried no contact ID")
	}
	return resp, nil
}

// UpdateContact patches the current contact
func (c *client) UpdateContact(ctx context.Context, changes Contact) (*Response[*Contact], error) {
	id, err := c.requireContact()
	if err != nil {
		return nil, err
	}

	changes.ID = 0
	resp, err := call[*Contact](ctx, c, http.MethodPatch, "/contacts/{id}", "/contacts/"+id.String(), changes, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeUpdateContact, "Failed to update contact")
	}
	return resp, nil
}

// GetContact fetches the current contact
func (c *client) GetContact(ctx context.Context) (*Response[*Contact], error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	id, ok := c.session.Current()
	if !ok {
		return &Response[*Contact]{Success: true}, nil
	}

	resp, err := call[*Contact](ctx, c, http.MethodGet, "/contacts/{id}", "/contacts/"+id.String(), nil, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeGetContact, "Failed to get contact")
	}
	return resp, nil
}

// ListContacts fetches all contacts
func (c *client) ListContacts(ctx context.Context) (*Response[[]Contact], error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	resp, err := call[[]Contact](ctx, c, http.MethodGet, "/contacts", "/contacts", nil, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeListContacts, "Failed to list contacts")
	}
	return resp, nil
}

type tagsBody struct {
	TagIDs []int64 `json:"tag_ids"`
}

// AddTags applies tags to the current contact
func (c *client) AddTags(ctx context.Context, tagIDs ...int64) (*Response[*Contact], error) {
	id, err := c.requireContact()
	if err != nil {
		return nil, err
	}

	body := tagsBody{TagIDs: nonNilIDs(tagIDs)}
	resp, err := call[*Contact](ctx, c, http.MethodPost, "/contacts/{id}/tags", "/contacts/"+id.String()+"/tags", body, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeAddTags, "Failed to add tags")
	}
	return resp, nil
}

// RemoveTags removes tags from the current contact
func (c *client) RemoveTags(ctx context.Context, tagIDs ...int64) (*Response[*Contact], error) {
	id, err := c.requireContact()
	if err != nil {
		return nil, err
	}

	body := tagsBody{TagIDs: nonNilIDs(tagIDs)}
	resp, err := call[*Contact](ctx, c, http.MethodDelete, "/contacts/{id}/tags", "/contacts/"+id.String()+"/tags", body, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeRemoveTags, "Failed to remove tags")
	}
	return resp, nil
}

// AddNote attaches a note to the current contact
func (c *client) AddNote(ctx context.Context, content, noteType string) (*Response[*Note], error) {
	id, err := c.requireContact()
	if err != nil {
		return nil, err
	}
	if noteType == "" {
		noteType = "note"
	}

	body := Note{Content: content, Type: noteType}
	resp, err := call[*Note](ctx, c, http.MethodPost, "/contacts/{id}/notes", "/contacts/"+id.String()+"/notes", body, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeAddNote, "Failed to add note")
	}
	return resp, nil
}

// ListNotes fetches the current contact's notes
func (c *client) ListNotes(ctx context.Context) (*Response[[]Note], error) {
	id, err := c.requireContact()
	if err != nil {
		return nil, err
	}

	resp, err := call[[]Note](ctx, c, http.MethodGet, "/contacts/{id}/notes", "/contacts/"+id.String()+"/notes", nil, nil)
	if err != nil {
		return nil, wrapOpError(err, CodeGetNotes, "Failed to get notes")
	}
	return resp, nil
}

// FindByEmail looks a contact up by email
func (c *client) FindByEmail(ctx context.Context, email string) (*Response[*Contact], error) {
	resp, err := c.findBy(ctx, "X-Search-Email", email)
	if err != nil {
		return nil, wrapOpError(err, CodeGetContactByMail, "Failed to get contact by email")
	}
	return resp, nil
}

// FindByPhone looks a contact up by phone number
func (c *client) FindByPhone(ctx context.Context, phone string) (*Response[*Contact], error) {
	resp, err := c.findBy(ctx, "X-Search-Phone", phone)
	if err != nil {
		return nil, wrapOpError(err, CodeGetContactByTel, "Failed to get contact by phone")
	}
	return resp, nil
}

// findBy queries the collection with a lookup header and keeps the first
// match.
func (c *client) findBy(ctx context.Context, header, value string) (*Response[*Contact], error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	list, err := call[[]Contact](ctx, c, http.MethodGet, "/contacts", "/contacts", nil, map[string]string{header: value})
	if err != nil {
		return nil, err
	}

	resp := &Response[*Contact]{Success: true, Message: list.Message}
	if len(list.Data) > 0 {
		first := list.Data[0]
		resp.Data = &first
	}
	return resp, nil
}

// SetContact makes id current
func (c *client) SetContact(ctx context.Context, id ContactID) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return c.session.Set(ctx, id)
}

// ContactID returns the current contact
func (c *client) ContactID() (ContactID, bool) {
	return c.session.Current()
}

// Session returns the backing session
func (c *client) Session() *Session {
	return c.session
}

// Close closes the client
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.ownsSession {
		_ = c.session.Close()
	}
	return c.transport.close()
}

// checkClosed returns an error if the client is closed
func (c *client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	return nil
}

// requireContact returns the current contact or NO_CONTACT_ERROR.
func (c *client) requireContact() (ContactID, error) {
	if err := c.checkClosed(); err != nil {
		return 0, err
	}
	id, ok := c.session.Current()
	if !ok {
		return 0, NewError(CodeNoContact, "No contact ID set", nil)
	}
	return id, nil
}

// apiPayload is the body shape shared by successes and failures.
type apiPayload struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

// call sends one API request and decodes the envelope.
func call[T any](ctx context.Context, c *client, method, route, path string, body any, headers map[string]string) (*Response[T], error) {
	req := request{
		method:  method,
		route:   route,
		url:     c.config.apiURL(path),
		body:    body,
		headers: headers,
	}

	raw, err := c.transport.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[T](req, raw)
}

// decodeResponse turns a raw response into an envelope. Non-2xx statuses
// become API errors carrying the server's code and message when the body
// has them; undecodable 2xx bodies become REQUEST_ERROR.
func decodeResponse[T any](req request, raw *rawResponse) (*Response[T], error) {
	var payload apiPayload
	var decodeErr error
	if len(bytes.TrimSpace(raw.body)) > 0 {
		decodeErr = json.Unmarshal(raw.body, &payload)
	}

	if raw.status < 200 || raw.status >= 300 {
		code, message := CodeAPI, "API request failed"
		if decodeErr == nil {
			if payload.Code != "" {
				code = Code(payload.Code)
			}
			if payload.Message != "" {
				message = payload.Message
			}
		}
		apiErr := newStatusError(code, message, raw.status)
		apiErr.RequestID = raw.requestID
		return nil, apiErr.WithContext(errorContext(req))
	}

	if decodeErr != nil {
		reqErr := NewError(CodeRequest, "Failed to parse response", decodeErr)
		reqErr.Status = raw.status
		reqErr.RequestID = raw.requestID
		return nil, reqErr.WithContext(errorContext(req))
	}

	resp := &Response[T]{Success: true, Message: payload.Message}
	data := bytes.TrimSpace(payload.Data)
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, &resp.Data); err != nil {
			reqErr := NewError(CodeRequest, "Failed to parse response data", err)
			reqErr.Status = raw.status
			reqErr.RequestID = raw.requestID
			return nil, reqErr.WithContext(errorContext(req))
		}
	}
	return resp, nil
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
