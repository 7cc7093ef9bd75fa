package sdk

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code is the symbolic tag carried by every SDK error. Codes from the
// Groundhogg server (for example "rest_forbidden") are passed through as-is.
type Code string

// Error codes produced by the SDK itself.
const (
	CodeInvalidConfig    Code = "INVALID_CONFIG"
	CodeInvalidContactID Code = "INVALID_CONTACT_ID"
	CodeNoContact        Code = "NO_CONTACT_ERROR"
	CodeAPI              Code = "API_ERROR"
	CodeRequest          Code = "REQUEST_ERROR"
	CodeNetwork          Code = "NETWORK_ERROR"
	CodeTracking         Code = "TRACKING_ERROR"
	CodeClosed           Code = "CLIENT_CLOSED"

	CodeCreateContact    Code = "CREATE_CONTACT_ERROR"
	CodeUpdateContact    Code = "UPDATE_CONTACT_ERROR"
	CodeGetContact       Code = "GET_CONTACT_ERROR"
	CodeListContacts     Code = "LIST_CONTACTS_ERROR"
	CodeAddTags          Code = "ADD_TAGS_ERROR"
	CodeRemoveTags       Code = "REMOVE_TAGS_ERROR"
	CodeAddNote          Code = "ADD_NOTE_ERROR"
	CodeGetNotes         Code = "GET_NOTES_ERROR"
	CodeGetContactByMail Code = "GET_CONTACT_BY_EMAIL_ERROR"
	CodeGetContactByTel  Code = "GET_CONTACT_BY_PHONE_ERROR"
)

// Sentinel errors for errors.Is. An *Error matches a sentinel when their
// codes are equal, so wrapped operation errors still match the code of the
// request failure underneath them.
//
// Example:
//
//	_, err := client.AddTags(ctx, 1, 2)
//	if errors.Is(err, sdk.ErrNoContact) {
//	    // create or identify the contact first
//	}
var (
	ErrInvalidConfig    = &Error{Code: CodeInvalidConfig, Message: "invalid configuration"}
	ErrInvalidContactID = &Error{Code: CodeInvalidContactID, Message: "invalid contact ID provided"}
	ErrNoContact        = &Error{Code: CodeNoContact, Message: "no contact set"}
	ErrAPI              = &Error{Code: CodeAPI, Message: "API request failed"}
	ErrRequest          = &Error{Code: CodeRequest, Message: "request failed"}
	ErrNetwork          = &Error{Code: CodeNetwork, Message: "network request failed"}
	ErrTracking         = &Error{Code: CodeTracking, Message: "failed to track event"}
	ErrClosed           = &Error{Code: CodeClosed, Message: "client is closed"}
)

// Error is the structured error returned by every SDK operation.
//
// Example:
//
//	var ghErr *sdk.Error
//	if errors.As(err, &ghErr) {
//	    log.Printf("%s (status %d): %s", ghErr.Code, ghErr.Status, ghErr.Message)
//	}
type Error struct {
	// Code is the symbolic failure class
	Code Code `json:"code"`
	// Message is a human-readable description
	Message string `json:"message"`
	// Status is the HTTP status code, zero when no response was received
	Status int `json:"status,omitempty"`
	// RequestID echoes the X-Request-ID of the failed request
	RequestID string `json:"request_id,omitempty"`
	// Context describes the request that failed, if any
	Context *ErrorContext `json:"context,omitempty"`
	// Timestamp is when the error occurred
	Timestamp time.Time `json:"timestamp"`
	// wrapped is the cause, if any
	wrapped error
}

// ErrorContext records where a failed request was sent.
type ErrorContext struct {
	URL      string        `json:"url,omitempty"`
	Method   string        `json:"method,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

// Unwrap returns the cause
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithContext attaches request context
func (e *Error) WithContext(ctx *ErrorContext) *Error {
	e.Context = ctx
	return e
}

// NewError creates a structured error.
func NewError(code Code, message string, wrapped error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		wrapped:   wrapped,
	}
}

// newStatusError creates a structured error for an HTTP response.
func newStatusError(code Code, message string, status int) *Error {
	err := NewError(code, message, nil)
	err.Status = status
	return err
}

// wrapOpError re-tags a request failure with the code of the operation that
// issued it. The request error stays reachable through Unwrap and its
// status is copied up. Errors that never reached the network (invalid id,
// no contact) are returned unchanged.
func wrapOpError(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoContact) || errors.Is(err, ErrInvalidContactID) || errors.Is(err, ErrClosed) {
		return err
	}

	opErr := NewError(code, message, err)
	var inner *Error
	if errors.As(err, &inner) {
		opErr.Status = inner.Status
		opErr.RequestID = inner.RequestID
		opErr.Context = inner.Context
	}
	return opErr
}

// NetworkError is a transport failure: connection refused, DNS, TLS,
// a fetch rejection in the browser, or a truncated body.
type NetworkError struct {
	// Op is the request that failed, e.g. "POST /contacts"
	Op string
	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ToError converts NetworkError to the structured Error type
func (e *NetworkError) ToError() *Error {
	return NewError(CodeNetwork, "Network request failed", e)
}

// CodeOf returns the code of the outermost *Error in err's chain, or ""
// when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}

// StatusOf returns the HTTP status attached to err, or zero.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsNoContact reports whether err was caused by calling a contact
// operation before any contact was identified.
func IsNoContact(err error) bool {
	return errors.Is(err, ErrNoContact)
}
