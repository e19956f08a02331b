package controllers

import (
	"net/http"
)

// sseSink writes raw document payloads as SSE data events.
type sseSink struct {
	w http.ResponseWriter
	r *http.Request
}

// Send writes one document with the "data: " prefix followed by the blank
// line the SSE format requires.
func (s sseSink) Send(payload []byte) error {
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	_, err := s.w.Write([]byte("\n\n"))
	return err
}

// Flush pushes buffered events to the client immediately.
func (s sseSink) Flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
