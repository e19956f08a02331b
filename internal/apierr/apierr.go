// Package apierr defines the numeric error codes the HTTP API exposes to
// clients alongside the transport status.
package apierr

import "net/http"

// Stable client-facing codes. Existing values never change meaning.
const (
	CodeMissingField       = 1000
	CodeInvalidJSON        = 1001
	CodeMaxDataSize        = 1002
	CodeInvalidCursor      = 1100
	CodeServiceUnavailable = 2000
)

// Error carries a client-facing code and message plus the HTTP status used
// when the error reaches the transport layer.
type Error struct {
	Code    int
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// MissingField reports an absent required request field.
func MissingField(field string) *Error {
	return &Error{Code: CodeMissingField, Status: http.StatusBadRequest, Message: "Missing " + field + " field"}
}

// InvalidJSON reports a payload that does not parse as JSON.
func InvalidJSON() *Error {
	return &Error{Code: CodeInvalidJSON, Status: http.StatusBadRequest, Message: "Invalid JSON"}
}

// PayloadTooLarge reports a payload above the configured limit.
func PayloadTooLarge() *Error {
	return &Error{Code: CodeMaxDataSize, Status: http.StatusRequestEntityTooLarge, Message: "Data field too large"}
}

// InvalidCursor reports an unparsable pagination token.
func InvalidCursor() *Error {
	return &Error{Code: CodeInvalidCursor, Status: http.StatusBadRequest, Message: "Invalid next token"}
}

// Unavailable reports that the ingest path cannot accept work right now.
func Unavailable() *Error {
	return &Error{Code: CodeServiceUnavailable, Status: http.StatusServiceUnavailable, Message: "Service Unavailable"}
}
