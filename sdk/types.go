package sdk

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ContactID identifies a Groundhogg contact. Valid ids are positive.
type ContactID int64

// Valid reports whether id can identify a contact.
func (id ContactID) Valid() bool {
	return id > 0
}

// String returns the decimal form used in URLs and storage.
func (id ContactID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseContactID parses a decimal contact id. Non-numeric and non-positive
// input yields an INVALID_CONTACT_ID error.
func ParseContactID(s string) (ContactID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, NewError(CodeInvalidContactID, "invalid contact ID provided", err)
	}
	id := ContactID(n)
	if !id.Valid() {
		return 0, NewError(CodeInvalidContactID, "invalid contact ID provided", nil)
	}
	return id, nil
}

// Response is the envelope returned by every Client operation. Failed
// calls return an error instead, so Success is always true on a returned
// Response.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Contact is a Groundhogg contact record. Fields the SDK does not model
// are kept in Fields and written back on encode.
type Contact struct {
	ID        ContactID
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Tags      []string
	Fields    map[string]any
}

var contactKeys = map[string]bool{
	"id": true, "email": true, "firstName": true, "lastName": true, "phone": true, "tags": true,
}

// MarshalJSON flattens Fields next to the known properties. Zero values
// are omitted so a partial Contact works as an update body.
func (c Contact) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+6)
	for k, v := range c.Fields {
		out[k] = v
	}
	if c.ID != 0 {
		out["id"] = c.ID
	}
	if c.Email != "" {
		out["email"] = c.Email
	}
	if c.FirstName != "" {
		out["firstName"] = c.FirstName
	}
	if c.LastName != "" {
		out["lastName"] = c.LastName
	}
	if c.Phone != "" {
		out["phone"] = c.Phone
	}
	if c.Tags != nil {
		out["tags"] = c.Tags
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts ids, tags and the text properties as numbers or
// strings. A text property of any other shape is kept in Fields.
func (c *Contact) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Contact{}
	if v, ok := raw["id"]; ok {
		id, err := decodeID(v)
		if err != nil {
			return err
		}
		c.ID = ContactID(id)
	}
	unknown := make(map[string]bool)
	for key, dst := range map[string]*string{
		"email":     &c.Email,
		"firstName": &c.FirstName,
		"lastName":  &c.LastName,
		"phone":     &c.Phone,
	} {
		if v, ok := raw[key]; ok {
			text, ok := decodeText(v)
			if !ok {
				unknown[key] = true
				continue
			}
			*dst = text
		}
	}
	if v, ok := raw["tags"]; ok {
		c.Tags = decodeTags(v)
	}

	for k, v := range raw {
		if contactKeys[k] && !unknown[k] {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		if c.Fields == nil {
			c.Fields = make(map[string]any)
		}
		c.Fields[k] = value
	}
	return nil
}

// Note is a note attached to a contact.
type Note struct {
	ID          int64     `json:"id,omitempty"`
	ContactID   ContactID `json:"contact_id,omitempty"`
	Content     string    `json:"content"`
	Type        string    `json:"type,omitempty"`
	DateCreated string    `json:"date_created,omitempty"`
}

// UnmarshalJSON accepts ids as numbers or strings.
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		ContactID   json.RawMessage `json:"contact_id"`
		Content     string          `json:"content"`
		Type        string          `json:"type"`
		DateCreated string          `json:"date_created"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Note{Content: raw.Content, Type: raw.Type, DateCreated: raw.DateCreated}
	if len(raw.ID) > 0 {
		id, err := decodeID(raw.ID)
		if err != nil {
			return err
		}
		n.ID = id
	}
	if len(raw.ContactID) > 0 {
		id, err := decodeID(raw.ContactID)
		if err != nil {
			return err
		}
		n.ContactID = ContactID(id)
	}
	return nil
}

// TrackingPayload is the body posted to the tracking endpoint.
type TrackingPayload struct {
	Event     string         `json:"event"`
	ContactID ContactID      `json:"contact_id,omitempty"`
	Data      map[string]any `json:"data"`
}

// decodeID reads a JSON number or numeric string. null decodes as zero.
func decodeID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Int64()
}

// decodeText reads a JSON string or number as text. null decodes as "".
// Any other value reports false.
func decodeText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func decodeTags(raw json.RawMessage) []string {
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err == nil {
		names = make([]string, len(ids))
		for i, id := range ids {
			names[i] = strconv.FormatInt(id, 10)
		}
		return names
	}
	return nil
}
